package presentation

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/loader"
	"github.com/zjrosen/tmlight/textview"
	"github.com/zjrosen/tmlight/theme"
)

func TestFromResults(t *testing.T) {
	lines := []string{"é x", "skipped", "y"}
	results := []*grammar.TokenizeResult{
		{Tokens: []grammar.Token{
			{StartIndex: 0, EndIndex: 1, Scopes: []string{"source.a", "string.a"}},
			{StartIndex: 1, EndIndex: 3, Scopes: []string{"source.a"}},
		}},
		nil,
		{Tokens: []grammar.Token{{StartIndex: 0, EndIndex: 1, Scopes: []string{"source.a"}}}, StoppedEarly: true},
	}

	got, err := FromResults(lines, results)
	require.NoError(t, err)

	want := []LineDTO{
		{Line: 1, Text: "é x", Tokens: []TokenDTO{
			{Start: 0, End: 1, ByteStart: 0, ByteEnd: 2, Text: "é", Scopes: []string{"source.a", "string.a"}},
			{Start: 1, End: 3, ByteStart: 2, ByteEnd: 4, Text: " x", Scopes: []string{"source.a"}},
		}},
		{Line: 3, Text: "y", StoppedEarly: true, Tokens: []TokenDTO{
			{Start: 0, End: 1, ByteStart: 0, ByteEnd: 1, Text: "y", Scopes: []string{"source.a"}},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromResults mismatch (-want +got):\n%s", diff)
	}
}

func TestFromToken_OutOfRange(t *testing.T) {
	_, err := FromToken(textview.New("ab"), grammar.Token{StartIndex: 0, EndIndex: 7})
	var rangeErr *textview.OffsetRangeError
	require.ErrorAs(t, err, &rangeErr)
}

func TestFromStyle(t *testing.T) {
	tests := []struct {
		name  string
		style theme.Style
		want  StyleDTO
	}{
		{
			name:  "colours only",
			style: theme.Style{Foreground: "#FFFFFF", Background: "#000000", FontStyle: theme.None},
			want:  StyleDTO{Foreground: "#FFFFFF", Background: "#000000"},
		},
		{
			name:  "font style",
			style: theme.Style{Foreground: "#FFFFFF", FontStyle: theme.Bold | theme.Italic},
			want:  StyleDTO{Foreground: "#FFFFFF", FontStyle: (theme.Bold | theme.Italic).String()},
		},
		{
			name:  "not set",
			style: theme.Style{FontStyle: theme.NotSet},
			want:  StyleDTO{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FromStyle(tt.style))
		})
	}
}

func TestFormatter_Lines(t *testing.T) {
	var buf bytes.Buffer
	lines := []LineDTO{{Line: 1, Text: "a", Tokens: []TokenDTO{{End: 1, ByteEnd: 1, Text: "a", Scopes: []string{"source.a"}}}}}
	require.NoError(t, NewFormatter(&buf).FormatLines(lines))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	require.NotContains(t, decoded[0], "stopped_early")
	tokens := decoded[0]["tokens"].([]any)
	require.Equal(t, "a", tokens[0].(map[string]any)["text"])
	require.Contains(t, buf.String(), "\n  ", "output is indented")
}

func TestFormatter_Grammars(t *testing.T) {
	var buf bytes.Buffer
	dtos := FromEntries([]loader.Entry{
		{ScopeName: "source.a", Path: "/g/a.tmLanguage.json"},
		{ScopeName: "todo.inj", Path: "/g/t.tmLanguage.json", InjectionSelector: "L:comment"},
	})
	require.NoError(t, NewFormatter(&buf).FormatGrammars(dtos))

	var decoded []GrammarDTO
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, []string{}, decoded[0].FileTypes)
	require.Equal(t, "L:comment", decoded[1].InjectionSelector)
	require.Contains(t, buf.String(), `"file_types": []`)
}

func TestFormatter_ScopeInfo(t *testing.T) {
	var buf bytes.Buffer
	info := ScopeInfoDTO{
		Line:   2,
		Column: 4,
		Token:  TokenDTO{Start: 3, End: 5, ByteStart: 3, ByteEnd: 5, Text: "if", Scopes: []string{"source.a", "keyword.a"}},
		Style:  StyleDTO{Foreground: "#C586C0", FontStyle: "bold"},
	}
	require.NoError(t, NewFormatter(&buf).FormatScopeInfo(info))

	var decoded ScopeInfoDTO
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	if diff := cmp.Diff(info, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
