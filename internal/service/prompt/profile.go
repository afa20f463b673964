// Package prompt renders the persona system prompt and owns the persona profile file.
package prompt

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSystemNote  = "No system note extension given. DO NOT MAKE ONE UP."
	DefaultName        = "unknown_bot"
	DefaultRole        = "unknown_role"
	DefaultAge         = "unknown_age"
	DefaultDescription = "no description provided"
	DefaultPreference  = "N/A"
)

// Text is a profile field that may be written as a string, a number or a list.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s, err := textFrom(v)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

func (t *Text) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	s, err := textFrom(v)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

func textFrom(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case []any:
		items := make([]string, 0, len(x))
		for _, item := range x {
			s, err := textFrom(item)
			if err != nil {
				return "", err
			}
			if s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, ", "), nil
	default:
		return "", fmt.Errorf("unsupported profile value %T", v)
	}
}

type Traits struct {
	Name        Text `json:"name" yaml:"name"`
	Role        Text `json:"role" yaml:"role"`
	Age         Text `json:"age" yaml:"age"`
	Description Text `json:"description" yaml:"description"`
	Likes       Text `json:"likes" yaml:"likes"`
	Dislikes    Text `json:"dislikes" yaml:"dislikes"`
}

type Example struct {
	User string `json:"user" yaml:"user"`
	Bot  string `json:"bot" yaml:"bot"`
}

// Profile is the persona definition behind every prompt.
type Profile struct {
	SystemNote Text      `json:"system_note" yaml:"system_note"`
	Traits     Traits    `json:"personality_traits" yaml:"personality_traits"`
	Examples   []Example `json:"conversation_examples" yaml:"conversation_examples"`
}

// WithDefaults fills every empty field with its placeholder.
func (p Profile) WithDefaults() Profile {
	def := func(t *Text, v string) {
		if strings.TrimSpace(string(*t)) == "" {
			*t = Text(v)
		}
	}
	def(&p.SystemNote, DefaultSystemNote)
	def(&p.Traits.Name, DefaultName)
	def(&p.Traits.Role, DefaultRole)
	def(&p.Traits.Age, DefaultAge)
	def(&p.Traits.Description, DefaultDescription)
	def(&p.Traits.Likes, DefaultPreference)
	def(&p.Traits.Dislikes, DefaultPreference)
	return p
}

// Name is the persona name used as the author of the bot's own turns.
func (p Profile) Name() string {
	return string(p.WithDefaults().Traits.Name)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// DecodeProfile parses data as YAML or JSON depending on the file extension.
func DecodeProfile(path string, data []byte) (Profile, error) {
	var p Profile
	var err error
	if isYAML(path) {
		err = yaml.Unmarshal(data, &p)
	} else {
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", filepath.Base(path), err)
	}
	return p.WithDefaults(), nil
}
