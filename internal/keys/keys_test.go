package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestPager_QuitBindings(t *testing.T) {
	require.Equal(t, []string{"q", "ctrl+c"}, Pager.Quit.Keys())
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlC}, Pager.Quit))
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, Pager.Quit))
}

func TestPager_HelpText(t *testing.T) {
	help := Pager.Reload.Help()
	require.Equal(t, "r", help.Key)
	require.Equal(t, "re-highlight", help.Desc)
}

func TestPager_FullHelpCoversShortHelp(t *testing.T) {
	full := map[string]bool{}
	for _, col := range Pager.FullHelp() {
		for _, b := range col {
			full[b.Help().Desc] = true
		}
	}
	for _, b := range Pager.ShortHelp() {
		require.True(t, full[b.Help().Desc], "short help binding %q missing from full help", b.Help().Desc)
	}
}

func TestPager_NoDuplicateKeys(t *testing.T) {
	seen := map[string]string{}
	for _, col := range Pager.FullHelp() {
		for _, b := range col {
			for _, k := range b.Keys() {
				prev, dup := seen[k]
				require.False(t, dup, "key %q bound to both %q and %q", k, prev, b.Help().Desc)
				seen[k] = b.Help().Desc
			}
		}
	}
}
