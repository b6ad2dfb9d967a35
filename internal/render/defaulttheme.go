package render

import "github.com/zjrosen/tmlight/theme"

func ptr(s string) *string { return &s }

// DefaultTheme is used when no theme file is configured.
func DefaultTheme() *theme.RawTheme {
	rule := func(scope, fg string, fontStyle *string) theme.RawSetting {
		return theme.RawSetting{
			Scope:    theme.ScopeList{scope},
			Settings: theme.RawStyle{Foreground: fg, FontStyle: fontStyle},
		}
	}
	return &theme.RawTheme{
		Name: "tmlight-dark",
		Colors: map[string]string{
			"editor.foreground": "#D4D4D4",
			"editor.background": "#1E1E1E",
		},
		TokenColors: []theme.RawSetting{
			rule("comment", "#6A9955", ptr("italic")),
			rule("string", "#CE9178", nil),
			rule("constant.numeric", "#B5CEA8", nil),
			rule("constant.language", "#569CD6", nil),
			rule("constant.character.escape", "#D7BA7D", nil),
			rule("keyword", "#C586C0", nil),
			rule("keyword.operator", "#D4D4D4", nil),
			rule("storage", "#569CD6", nil),
			rule("storage.type", "#4EC9B0", nil),
			rule("entity.name.function", "#DCDCAA", nil),
			rule("support.function", "#DCDCAA", nil),
			rule("entity.name.type", "#4EC9B0", nil),
			rule("entity.name.tag", "#569CD6", nil),
			rule("entity.other.attribute-name", "#9CDCFE", nil),
			rule("variable", "#9CDCFE", nil),
			rule("punctuation.definition.comment", "#6A9955", nil),
			rule("markup.bold", "", ptr("bold")),
			rule("markup.italic", "", ptr("italic")),
			rule("markup.heading", "#569CD6", ptr("bold")),
			rule("invalid", "#F44747", ptr("underline")),
			rule("invalid.deprecated", "", ptr("strikethrough")),
		},
	}
}
