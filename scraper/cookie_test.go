package scraper

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCookieString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]string
	}{
		{
			"simple",
			`bid=abc; ll="118281"`,
			map[string]string{"bid": "abc", "ll": `"118281"`},
		},
		{
			"value keeps equal signs",
			"ck=a=b==; dbcl2=1:x",
			map[string]string{"ck": "a=b==", "dbcl2": "1:x"},
		},
		{
			"ignores segments without name or equal sign",
			"flag; =nothing;  push_noty_num=0 ;",
			map[string]string{"push_noty_num": "0"},
		},
		{
			"empty",
			"",
			map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseCookieString(tt.in)); diff != "" {
				t.Errorf("(-shouldBe +got)\n%v", diff)
			}
		})
	}
}
