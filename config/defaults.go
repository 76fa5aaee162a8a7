package config

const (
	DefaultAPIURL         = "http://localhost:8000"
	DefaultRequestTimeout = "120s"
	DefaultGreeting       = "Hi there! I'm your grant assistant. Ask me anything about SME grants, or press Alt+U to upload a document for context."
	DefaultGrantGreeting  = "Hello! I can answer questions about grant **%s**. What do you need to know?"
)

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/grantdesk",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Backend: BackendConfig{
			URL:            DefaultAPIURL,
			RequestTimeout: DefaultRequestTimeout,
		},
		Chat: ChatConfig{
			Greeting:      DefaultGreeting,
			GrantGreeting: DefaultGrantGreeting,
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# grantdesk System Configuration
# Location: ~/.config/grantdesk/settings.toml
# This file uses TOML format: https://toml.io

# Directory where user config, activity history and debug logs are stored
data_directory = "~/.local/share/grantdesk"
`
}

func GenerateUserConfigTemplate() string {
	return `# grantdesk User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[backend]
# Base URL of the grant assistant API
url = "http://localhost:8000"

# Requests that take longer than this fail with a transport error
request_timeout = "120s"

[chat]
# First assistant message of a new chat (empty string disables it)
greeting = "Hi there! I'm your grant assistant. Ask me anything about SME grants, or press Alt+U to upload a document for context."

# First assistant message of a grant-scoped chat, %s is replaced by the grant id
grant_greeting = "Hello! I can answer questions about grant **%s**. What do you need to know?"
`
}
