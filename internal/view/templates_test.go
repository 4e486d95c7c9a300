package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderDirectoryPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = engine.Render(rr, "pages/users.html", TemplateData{
		Lang:  "es",
		Title: "Conecta2: Jóvenes y Mayores",
		Data: map[string]any{
			"HeroAlt": "Joven ayudando a mayor con el móvil",
			"Lines":   []string{"Ana (70)\nIntereses: chess"},
			"Count":   "1 usuarios",
		},
	})
	require.NoError(t, err)

	body := rr.Body.String()
	assert.Contains(t, body, "Conecta2: Jóvenes y Mayores")
	assert.Contains(t, body, "/static/img/hero.svg")
	assert.Contains(t, body, "Ana (70)")
	assert.Contains(t, body, "Intereses: chess")
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestRenderNilEngine(t *testing.T) {
	var engine *Engine
	assert.Error(t, engine.Render(httptest.NewRecorder(), "pages/users.html", TemplateData{}))
}
