package services

import (
	"fmt"
	"strings"
)

// TemplateConfig holds one notification template
type TemplateConfig struct {
	Subject     string // email only
	Body        string
	Description string
	Parameters  []string
}

// TemplateService renders notification templates
type TemplateService struct {
	templates map[string]TemplateConfig
}

func NewTemplateService() *TemplateService {
	return &TemplateService{templates: NotificationTemplates}
}

const (
	TemplateStaffWelcome      = "staff_welcome"
	TemplatePasswordReset     = "password_reset_code"
	TemplateNewRequestAlert   = "new_request_alert"
	TemplateRequestEscalated  = "request_escalated"
	TemplateTenantSuspended   = "tenant_suspended"
	TemplateTenantReactivated = "tenant_reactivated"
	TemplateDailyDigest       = "daily_digest"
)

// NotificationTemplates maps template names to their content
var NotificationTemplates = map[string]TemplateConfig{
	TemplateStaffWelcome: {
		Subject:     "Welcome to {{hotel_name}} on GuestVoice",
		Body:        "Hi {{name}},\n\nAn account was created for you at {{hotel_name}}.\nSign in with {{email}} using hotel code \"{{slug}}\".\n",
		Description: "Sent to newly created staff",
		Parameters:  []string{"name", "hotel_name", "email", "slug"},
	},
	TemplatePasswordReset: {
		Subject:     "Your GuestVoice password reset code",
		Body:        "Your password reset code is {{code}}. It expires in {{minutes}} minutes.\nIf you did not ask for a reset you can ignore this email.\n",
		Description: "One-time code for password reset",
		Parameters:  []string{"code", "minutes"},
	},
	TemplateNewRequestAlert: {
		Body:        "New {{priority}} request for room {{room}} ({{type}}): {{description}} [{{request_id}}]",
		Description: "SMS to the front desk when a guest request is created",
		Parameters:  []string{"priority", "room", "type", "description", "request_id"},
	},
	TemplateRequestEscalated: {
		Body:        "ESCALATED: room {{room}} {{type}} request pending {{minutes}} min, now {{priority}} [{{request_id}}]",
		Description: "SMS when a pending request is escalated",
		Parameters:  []string{"room", "type", "minutes", "priority", "request_id"},
	},
	TemplateTenantSuspended: {
		Subject:     "{{hotel_name}} has been suspended",
		Body:        "Your GuestVoice account for {{hotel_name}} was suspended.\nReason: {{reason}}\nContact support to restore access.\n",
		Description: "Suspension notice to the hotel",
		Parameters:  []string{"hotel_name", "reason"},
	},
	TemplateTenantReactivated: {
		Subject:     "{{hotel_name}} is active again",
		Body:        "Your GuestVoice account for {{hotel_name}} has been reactivated.\n",
		Description: "Reactivation notice to the hotel",
		Parameters:  []string{"hotel_name"},
	},
	TemplateDailyDigest: {
		Subject: "{{hotel_name}} daily summary for {{date}}",
		Body: "Summary for {{date}}:\n" +
			"Calls handled: {{calls}}\n" +
			"Requests created: {{requests_created}}\n" +
			"Requests completed: {{requests_completed}}\n" +
			"Requests still open: {{requests_open}}\n",
		Description: "Daily digest email",
		Parameters:  []string{"hotel_name", "date", "calls", "requests_created", "requests_completed", "requests_open"},
	},
}

// Render fills the template's {{param}} placeholders
func (ts *TemplateService) Render(templateName string, params map[string]string) (subject, body string, err error) {
	template, exists := ts.templates[templateName]
	if !exists {
		return "", "", fmt.Errorf("template '%s' not found", templateName)
	}

	for _, requiredParam := range template.Parameters {
		if _, ok := params[requiredParam]; !ok {
			return "", "", fmt.Errorf("missing required parameter: %s", requiredParam)
		}
	}

	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(template.Subject), r.Replace(template.Body), nil
}

// GetTemplateInfo returns information about a template
func (ts *TemplateService) GetTemplateInfo(templateName string) (*TemplateConfig, error) {
	template, exists := ts.templates[templateName]
	if !exists {
		return nil, fmt.Errorf("template '%s' not found", templateName)
	}
	return &template, nil
}
