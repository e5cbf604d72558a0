package skills

// Meta is the SKILL.md front matter
type Meta struct {
	Name          string         `yaml:"name" json:"name"`
	Description   string         `yaml:"description" json:"description"`
	License       string         `yaml:"license,omitempty" json:"license,omitempty"`
	Compatibility string         `yaml:"compatibility,omitempty" json:"compatibility,omitempty"`
	Metadata      map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Skill is a stored skill with its resource listings
type Skill struct {
	Meta
	Body       string   `json:"body"`
	Scripts    []string `json:"scripts"`
	References []string `json:"references"`
	Assets     []string `json:"assets"`
}

// Summary is the listing form of a skill
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Resources maps filenames to file contents
type Resources map[string]string

// CreateRequest describes a new skill
type CreateRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Body          string         `json:"body"`
	License       string         `json:"license,omitempty"`
	Compatibility string         `json:"compatibility,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Scripts       Resources      `json:"scripts,omitempty"`
	References    Resources      `json:"references,omitempty"`
	Assets        Resources      `json:"assets,omitempty"`
}

// UpdateRequest holds the fields to change. Nil fields are left untouched;
// a non-nil resource map, even an empty one, replaces that whole
// subdirectory.
type UpdateRequest struct {
	Description   *string        `json:"description,omitempty"`
	Body          *string        `json:"body,omitempty"`
	License       *string        `json:"license,omitempty"`
	Compatibility *string        `json:"compatibility,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Scripts       Resources      `json:"scripts,omitempty"`
	References    Resources      `json:"references,omitempty"`
	Assets        Resources      `json:"assets,omitempty"`
}

// ScriptRequest runs one of a skill's scripts
type ScriptRequest struct {
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Timeout int               `json:"timeout,omitempty"`
}
