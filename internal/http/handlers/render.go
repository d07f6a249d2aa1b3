package handlers

import (
	"html/template"
	"strings"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"

	"eyewear/internal/money"
)

// NewEngine loads the page templates and registers the view helpers.
func NewEngine(dir string, m *money.Formatter) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("money", m.Format)
	engine.AddFunc("percent", m.Percent)
	engine.AddFunc("join", strings.Join)
	engine.AddFunc("checked", func(set []string, v string) template.HTMLAttr {
		for _, s := range set {
			if strings.EqualFold(s, v) {
				return "checked"
			}
		}
		return ""
	})
	engine.AddFunc("add", func(a, b int) int { return a + b })
	engine.AddFunc("dict", func(kv ...any) map[string]any {
		m := make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			if k, ok := kv[i].(string); ok {
				m[k] = kv[i+1]
			}
		}
		return m
	})
	return engine
}

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	return c.Render(tmpl, withSession(c, data))
}

// withSession adds the current user and the CSRF token for the layout.
func withSession(c *fiber.Ctx, data fiber.Map) fiber.Map {
	if data == nil {
		data = fiber.Map{}
	}
	if u := CurrentUser(c); u != nil {
		data["User"] = u
	}
	// Pick up the token the CSRF middleware put into Locals
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return data
}
