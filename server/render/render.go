package render

import (
	"encoding/json"
	"html/template"
	"net/http"
	"path/filepath"

	"rincewind/logger"
	"rincewind/server/noti"
	"rincewind/utils"
)

var jsonContentTypes = []string{"application/json", "*/*"}

//Model is the view model a controller action hands to the render pipeline.
type Model map[string]interface{}

//Renderer turns a view name, a model and the pending notifications into a
//response body, in the first negotiated content type it can serve.
type Renderer struct {
	templatePath string
}

func NewRenderer(templatePath string) *Renderer {
	return &Renderer{templatePath: templatePath}
}

//Render picks the first supported content type from the negotiated list
//(HTML via the view's template, JSON otherwise) and writes the response.
//An empty or fully unsupported list falls back to JSON.
func (renderer *Renderer) Render(w http.ResponseWriter, viewName string, model Model, notifications *noti.NotificationCenter, acceptedTypes []string) error {
	for _, contentType := range acceptedTypes {
		if contentType == "text/html" {
			return renderer.renderHtml(w, viewName, model, notifications)
		}
		if utils.Contains(jsonContentTypes, contentType) {
			return renderer.renderJson(w, model, notifications)
		}
	}
	return renderer.renderJson(w, model, notifications)
}

func (renderer *Renderer) renderHtml(w http.ResponseWriter, viewName string, model Model, notifications *noti.NotificationCenter) error {
	templateFile := filepath.Join(renderer.templatePath, viewName+".html")
	parsedTemplate, err := template.ParseFiles(templateFile)
	if err != nil {
		logger.Warn("Can't parse template '%s': %s, falling back to JSON", templateFile, err.Error())
		return renderer.renderJson(w, model, notifications)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return parsedTemplate.Execute(w, map[string]interface{}{
		"Model":         model,
		"Notifications": pendingPayload(notifications),
	})
}

func (renderer *Renderer) renderJson(w http.ResponseWriter, model Model, notifications *noti.NotificationCenter) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]interface{}{
		"data":          model,
		"notifications": pendingPayload(notifications),
	})
}

func pendingPayload(notifications *noti.NotificationCenter) []map[string]interface{} {
	if notifications == nil {
		return nil
	}
	pending := notifications.Pending()
	payload := make([]map[string]interface{}, len(pending))
	for i, event := range pending {
		payload[i] = event.Obj()
	}
	return payload
}
