// Package config handles the .langcache.yaml configuration file.
//
// The configuration supplies the cache root (system.paths.root), the
// applications to translate with their languages
// (system.translated_applications), the language API endpoint and optional
// extra applets. Environment variables prefixed with LANGCACHE_ override the
// file; command-line flags override both.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/minios-linux/langcache/cachefile"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = ".langcache.yaml"

// EnvPrefix is the prefix of environment overrides (LANGCACHE_ROOT, ...).
const EnvPrefix = "langcache"

// Defaults for the api section.
const (
	DefaultTarget  = "system_api"
	DefaultMode    = "language_api"
	DefaultTimeout = 30 * time.Second
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .langcache.yaml structure.
type File struct {
	System  System  `yaml:"system"`
	API     API     `yaml:"api,omitempty"`
	Applets Applets `yaml:"applets,omitempty"`

	path string `yaml:"-"`
}

// System holds the settings the batch reads from the "system" section.
type System struct {
	Paths                  Paths        `yaml:"paths"`
	TranslatedApplications Applications `yaml:"translated_applications"`
}

// Paths holds filesystem locations.
type Paths struct {
	// Root is the directory that receives cache/.
	Root string `yaml:"root"`
}

// API describes the remote language API. An empty URL selects the built-in
// canned client.
type API struct {
	URL     string        `yaml:"url,omitempty"`
	Target  string        `yaml:"target,omitempty"`
	Mode    string        `yaml:"mode,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Proxy   string        `yaml:"proxy,omitempty"`
}

// Application is one entry of the application → languages map.
type Application struct {
	ID        string
	Languages []string
}

// Applications keeps the order in which applications appear in the file.
type Applications []Application

// UnmarshalYAML decodes a mapping of application id → language list.
func (a *Applications) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: translated_applications must be a mapping", value.Line)
	}
	apps := make(Applications, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		var langs []string
		if err := val.Decode(&langs); err != nil {
			return fmt.Errorf("line %d: languages of %q: %w", val.Line, key.Value, err)
		}
		apps = append(apps, Application{ID: key.Value, Languages: langs})
	}
	*a = apps
	return nil
}

// MarshalYAML encodes the list back into an ordered mapping.
func (a Applications) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, app := range a {
		var langs yaml.Node
		if err := langs.Encode(app.Languages); err != nil {
			return nil, err
		}
		langs.Style = yaml.FlowStyle
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: app.ID},
			&langs,
		)
	}
	return node, nil
}

// Applet maps an applet directory name to the applet identifier used by the API.
type Applet struct {
	Directory string
	ID        string
}

// Applets keeps the order in which applets appear in the file.
type Applets []Applet

// UnmarshalYAML decodes a mapping of directory → applet id.
func (a *Applets) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: applets must be a mapping", value.Line)
	}
	applets := make(Applets, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: applet %q must map to an identifier", val.Line, key.Value)
		}
		applets = append(applets, Applet{Directory: key.Value, ID: val.Value})
	}
	*a = applets
	return nil
}

// MarshalYAML encodes the list back into an ordered mapping.
func (a Applets) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, ap := range a {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: ap.Directory},
			&yaml.Node{Kind: yaml.ScalarNode, Value: ap.ID},
		)
	}
	return node, nil
}

// Merge returns a followed by the entries of b. An entry of b replaces the
// entry of a with the same directory in place.
func (a Applets) Merge(b Applets) Applets {
	out := make(Applets, len(a), len(a)+len(b))
	copy(out, a)
	for _, ap := range b {
		replaced := false
		for i := range out {
			if out[i].Directory == ap.Directory {
				out[i] = ap
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, ap)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// Error reports an invalid or missing configuration.
type Error struct {
	Path string
	Msg  string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Msg
	}
	return e.Path + ": " + e.Msg
}

// ErrNotFound is wrapped by Load when the config file does not exist.
var ErrNotFound = errors.New("config file not found")

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// envOverrides is filled from LANGCACHE_* environment variables.
type envOverrides struct {
	Root       string        `envconfig:"ROOT"`
	APIURL     string        `envconfig:"API_URL"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT"`
	APIProxy   string        `envconfig:"API_PROXY"`
}

// Path returns the config file path for rootDir, or explicit when set.
// A leading ~ is expanded.
func Path(rootDir, explicit string) (string, error) {
	p := explicit
	if p == "" {
		p = filepath.Join(rootDir, FileName)
	}
	return homedir.Expand(p)
}

// Overrides carries command-line values that take precedence over both the
// file and the environment. Zero values are ignored.
type Overrides struct {
	Root    string
	APIURL  string
	Timeout time.Duration
	Proxy   string
}

// Load reads the config file, applies environment overrides and then ov,
// fills defaults and validates the result. The file is explicit when set,
// otherwise rootDir/.langcache.yaml.
func Load(rootDir, explicit string, ov Overrides) (*File, error) {
	path, err := Path(rootDir, explicit)
	if err != nil {
		return nil, &Error{Msg: fmt.Sprintf("resolving config path: %v", err)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no %s found at %s: %w", FileName, path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.path = path

	if err := f.applyEnv(); err != nil {
		return nil, &Error{Path: path, Msg: err.Error()}
	}
	f.apply(ov)
	if err := f.finalize(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse decodes config YAML without applying overrides or defaults.
// Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &f, nil
}

// New returns a starter config that will be saved to path.
func New(path, root string, apps Applications) *File {
	return &File{
		System: System{
			Paths:                  Paths{Root: root},
			TranslatedApplications: apps,
		},
		API: API{
			Target:  DefaultTarget,
			Mode:    DefaultMode,
			Timeout: DefaultTimeout,
		},
		path: path,
	}
}

// FilePath returns the path the config was loaded from.
func (f *File) FilePath() string {
	return f.path
}

func (f *File) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}
	if env.Root != "" {
		f.System.Paths.Root = env.Root
	}
	if env.APIURL != "" {
		f.API.URL = env.APIURL
	}
	if env.APITimeout > 0 {
		f.API.Timeout = env.APITimeout
	}
	if env.APIProxy != "" {
		f.API.Proxy = env.APIProxy
	}
	return nil
}

func (f *File) apply(ov Overrides) {
	if ov.Root != "" {
		f.System.Paths.Root = ov.Root
	}
	if ov.APIURL != "" {
		f.API.URL = ov.APIURL
	}
	if ov.Timeout > 0 {
		f.API.Timeout = ov.Timeout
	}
	if ov.Proxy != "" {
		f.API.Proxy = ov.Proxy
	}
}

// finalize applies defaults, resolves the cache root against baseDir and
// validates the result.
func (f *File) finalize(baseDir string) error {
	if f.API.Target == "" {
		f.API.Target = DefaultTarget
	}
	if f.API.Mode == "" {
		f.API.Mode = DefaultMode
	}
	if f.API.Timeout <= 0 {
		f.API.Timeout = DefaultTimeout
	}

	if f.System.Paths.Root != "" {
		root, err := ResolveRoot(f.System.Paths.Root, baseDir)
		if err != nil {
			return &Error{Path: f.path, Msg: err.Error()}
		}
		f.System.Paths.Root = root
	}

	return f.Validate()
}

// ResolveRoot expands ~ and makes a relative root absolute against baseDir.
func ResolveRoot(root, baseDir string) (string, error) {
	expanded, err := homedir.Expand(root)
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", root, err)
	}
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(baseDir, expanded)
	}
	return filepath.Abs(expanded)
}

// Validate checks the settings the batch depends on.
func (f *File) Validate() error {
	fail := func(format string, args ...any) error {
		return &Error{Path: f.path, Msg: fmt.Sprintf(format, args...)}
	}

	if f.System.Paths.Root == "" {
		return fail("system.paths.root is not set")
	}

	// Keys are compared case-insensitively: "shop/en.php" and "SHOP/EN.php"
	// are the same file on case-insensitive filesystems.
	seen := make(map[string]string)
	for _, app := range f.System.TranslatedApplications {
		if !cachefile.ValidSegment(app.ID) {
			return fail("invalid application name %q", app.ID)
		}
		if prev, ok := seen[strings.ToLower(app.ID)]; ok {
			return fail("application %q is listed twice (as %q)", app.ID, prev)
		}
		seen[strings.ToLower(app.ID)] = app.ID

		langSeen := make(map[string]string)
		for _, lang := range app.Languages {
			if err := ValidateLanguage(lang); err != nil {
				return fail("application %q: %v", app.ID, err)
			}
			if prev, ok := langSeen[strings.ToLower(lang)]; ok {
				return fail("application %q lists language %q twice (as %q)", app.ID, lang, prev)
			}
			langSeen[strings.ToLower(lang)] = lang
		}
	}

	for _, ap := range f.Applets {
		if ap.Directory == "" || ap.ID == "" {
			return fail("applet entries need a directory and an identifier")
		}
	}

	return nil
}

// ValidateLanguage checks that code is a BCP 47 tag usable as a file name.
func ValidateLanguage(code string) error {
	if !cachefile.ValidSegment(code) {
		return fmt.Errorf("invalid language code %q", code)
	}
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return nil
}

// Save writes the config back to its file.
func (f *File) Save() error {
	if f.path == "" {
		return fmt.Errorf("config file path not set")
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	return nil
}
