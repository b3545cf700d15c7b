package security

import "testing"

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "空文字", input: "", want: ""},
		{name: "プレーンテキスト", input: "医師向けのロール", want: "医師向けのロール"},
		{name: "タグ除去", input: "<b>admin</b> role", want: "admin role"},
		{name: "scriptは中身ごと除去", input: "<script>alert(1)</script>staff", want: "staff"},
		{name: "イベント属性", input: `<img src="x" onerror="alert(1)">desc`, want: "desc"},
		{name: "前後の空白", input: "  <p>text</p>  ", want: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText_Idempotent(t *testing.T) {
	input := "<em>患者</em>向け"
	first := SanitizeText(input)
	if second := SanitizeText(first); first != second {
		t.Errorf("not idempotent: %q then %q", first, second)
	}
}
