package plugins

type Hook struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

type Tool struct {
	Name string `json:"name"`
}

// Plugin is an installed plugin's manifest.
type Plugin struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AuthorName  string `json:"author_name"`
	AuthorURL   string `json:"author_url"`
	PluginURL   string `json:"plugin_url"`
	Tags        string `json:"tags"`
	Thumb       string `json:"thumb"`
	Version     string `json:"version"`
	Active      bool   `json:"active"`
	Hooks       []Hook `json:"hooks,omitempty"`
	Tools       []Tool `json:"tools,omitempty"`
}

// RegistryPlugin is a plugin published on the registry.
type RegistryPlugin struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AuthorName  string `json:"author_name"`
	Version     string `json:"version"`
	URL         string `json:"url"`
}

type Filters struct {
	Query string `json:"query,omitempty"`
}

// Collection is the answer to GetAvailablePlugins.
type Collection struct {
	Filters   Filters          `json:"filters"`
	Installed []Plugin         `json:"installed"`
	Registry  []RegistryPlugin `json:"registry"`
}

type Install struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Info        string `json:"info"`
}

type InstallFromRegistry struct {
	URL  string `json:"url"`
	Info string `json:"info"`
}

type Toggle struct {
	Info string `json:"info"`
}

// Settings are the current values of a plugin's settings with their JSON
// schema.
type Settings struct {
	Name   string                 `json:"name"`
	Value  map[string]interface{} `json:"value"`
	Schema map[string]interface{} `json:"schema,omitempty"`
}

type SettingsList struct {
	Settings []Settings `json:"settings"`
}

type Details struct {
	Data Plugin `json:"data"`
}

type Delete struct {
	Deleted string `json:"deleted"`
}
