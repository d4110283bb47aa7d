package analysis

// LanguageServerConfig defines how to launch an external language server.
type LanguageServerConfig struct {
	Command  []string       // e.g. ["gopls", "serve"]
	InitOpts map[string]any // LSP initializationOptions (optional)
}

// DefaultServers maps language IDs to default stdio server command lines.
// Used by the lsp backend when engine.command is empty.
var DefaultServers = map[string]LanguageServerConfig{
	"go":         {Command: []string{"gopls", "serve"}},
	"csharp":     {Command: []string{"csharp-ls"}},
	"python":     {Command: []string{"pyright-langserver", "--stdio"}},
	"typescript": {Command: []string{"typescript-language-server", "--stdio"}},
	"javascript": {Command: []string{"typescript-language-server", "--stdio"}},
}
