package config

import (
	"bytes"
	"fmt"
	"text/template"
)

// StarterOptions are the answers collected by `chatmem config init`.
type StarterOptions struct {
	// Provider is "openai_compatible" or "anthropic".
	Provider string
	Model    string

	// BaseURL is only used by the OpenAI-compatible provider.
	BaseURL string

	EnableGateway bool
	GatewayBind   string
}

var starterTemplate = template.Must(template.New("chatmem.yaml").Parse(`version: "1"

logging:
  level: info
  format: text

conversation:
  max_history_messages: 20
  max_dialogs_per_owner: 8
  ttl: 24h
  sweep_schedule: "*/5 * * * *"
  default_style: default

router:
  workers: 10
  inbox_size: 256
  generation_timeout: 60s

modules:
  channel.telegram:
    token: "${TELEGRAM_TOKEN}"
{{- if eq .Provider "anthropic" }}
  provider.anthropic:
    api_key: "${ANTHROPIC_API_KEY}"
    model: {{ .Model }}
{{- else }}
  provider.openai_compatible:
    base_url: {{ .BaseURL }}
    api_key: "${GROQ_API_KEY}"
    model: {{ .Model }}
{{- end }}
{{- if .EnableGateway }}
  gateway.http:
    bind: "{{ .GatewayBind }}"
    auth:
      bearer_token: "${ADMIN_TOKEN}"
{{- end }}
`))

// Starter renders a starter configuration file.
func Starter(opts StarterOptions) ([]byte, error) {
	if opts.Provider == "" {
		opts.Provider = "openai_compatible"
	}
	if opts.Model == "" {
		if opts.Provider == "anthropic" {
			opts.Model = "claude-3-5-haiku-latest"
		} else {
			opts.Model = "llama-3.1-8b-instant"
		}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.groq.com/openai/v1"
	}
	if opts.GatewayBind == "" {
		opts.GatewayBind = "127.0.0.1:8080"
	}

	var buf bytes.Buffer
	if err := starterTemplate.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("config: rendering starter: %w", err)
	}
	return buf.Bytes(), nil
}
