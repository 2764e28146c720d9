package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// RunFile is the JSON run description accepted by the CLI's -c flag.
//
//	{
//	  "url": "https://example.com/sitemap.xml",
//	  "formats": ["html-embedded", "screenshot"],
//	  "output": "./output",
//	  "width": 1024,
//	  "csv": true,
//	  "cookies": {"gdpr": "true"}
//	}
//
// formats may also be a single string.
type RunFile struct {
	URL     string         `json:"url"`
	Formats FormatList     `json:"formats"`
	Output  string         `json:"output"`
	Width   int            `json:"width"`
	CSV     bool           `json:"csv"`
	Cookies map[string]any `json:"cookies"`
}

// FormatList decodes either a JSON string or an array of strings.
type FormatList []string

func (f *FormatList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*f = FormatList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("formats must be a string or an array of strings: %w", err)
	}
	*f = many
	return nil
}

// LoadRunFile reads and parses a JSON run file.
func LoadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var rf RunFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &rf, nil
}

// StringCookies converts cookie values of any JSON type to strings.
func (rf *RunFile) StringCookies() map[string]string {
	if len(rf.Cookies) == 0 {
		return nil
	}
	out := make(map[string]string, len(rf.Cookies))
	for k, v := range rf.Cookies {
		switch t := v.(type) {
		case string:
			out[k] = t
		default:
			b, _ := json.Marshal(t)
			out[k] = strings.Trim(string(b), `"`)
		}
	}
	return out
}

// ExampleRunFile is printed by "prerender -h config".
const ExampleRunFile = `{
  "url": "https://www.example.com/sitemap.xml",
  "formats": ["html-embedded", "screenshot"],
  "output": "./output",
  "width": 1024,
  "csv": true,
  "cookies": {
    "gdpr": "true"
  }
}`
