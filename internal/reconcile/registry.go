package reconcile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultRegistryVersion is bumped whenever DefaultSequences changes.
const DefaultRegistryVersion = 1

// DefaultSequences are the counters behind the learning platform tables.
var DefaultSequences = []string{
	"answermatch_instrument_answermatch_id_seq",
	"answertext_instrument_answertext_id_seq",
	"audio_instrument_audio_id_seq",
	"componentmedia_instrument_componentmedia_id_seq",
	"image_instrument_image_id_seq",
	"learning_instrument_learning_id_seq",
	"learningmedia_instrument_learningmedia_id_seq",
	"questionmedia_instrument_questionmedia_id_seq",
	"questiontext_instrument_questiontext_id_seq",
	"questiontype_instrument_questiontype_id_seq",
	"quizz_instrument_quizz_id_seq",
	"thai_instrument_thaiinstrument_id_seq",
	"user_user_id_seq",
}

// Registry is an ordered, immutable list of sequence names.
//
// The zero value is an empty registry. Names are unique; order is the
// declaration order and is kept in every report.
type Registry struct {
	version int
	names   []string
}

// NewRegistry validates names and returns a registry owning its own copy.
func NewRegistry(version int, names ...string) (Registry, error) {
	seen := make(map[string]struct{}, len(names))
	owned := make([]string, 0, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return Registry{}, fmt.Errorf("registry entry %d is empty", i)
		}
		if _, dup := seen[name]; dup {
			return Registry{}, fmt.Errorf("registry entry %q is declared twice", name)
		}
		seen[name] = struct{}{}
		owned = append(owned, name)
	}
	return Registry{version: version, names: owned}, nil
}

// DefaultRegistry returns the built-in registry.
func DefaultRegistry() Registry {
	reg, err := NewRegistry(DefaultRegistryVersion, DefaultSequences...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Version is the registry's declared version.
func (r Registry) Version() int { return r.version }

// Len is the number of entries.
func (r Registry) Len() int { return len(r.names) }

// Names returns a copy of the entries in declaration order.
func (r Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Contains reports whether name is declared.
func (r Registry) Contains(name string) bool {
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

// UnknownNameError lists requested names that the registry does not declare.
type UnknownNameError struct {
	Names []string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("sequences not in registry: %s", strings.Join(e.Names, ", "))
}

// Subset keeps only the requested names, in registry order. Duplicates in
// only are ignored. An empty only returns r unchanged.
func (r Registry) Subset(only []string) (Registry, error) {
	if len(only) == 0 {
		return r, nil
	}

	wanted := make(map[string]struct{}, len(only))
	var unknown []string
	for _, name := range only {
		if !r.Contains(name) {
			unknown = append(unknown, name)
			continue
		}
		wanted[name] = struct{}{}
	}
	if len(unknown) > 0 {
		return Registry{}, &UnknownNameError{Names: unknown}
	}

	kept := make([]string, 0, len(wanted))
	for _, name := range r.names {
		if _, ok := wanted[name]; ok {
			kept = append(kept, name)
		}
	}
	return Registry{version: r.version, names: kept}, nil
}

// Loader produces the registry for one run.
type Loader interface {
	Load(ctx context.Context) (Registry, error)
}

// StaticLoader always returns the same registry.
type StaticLoader struct {
	Registry Registry
}

func (l StaticLoader) Load(context.Context) (Registry, error) {
	return l.Registry, nil
}

// registryFile is the on-disk YAML layout:
//
//	version: 2
//	sequences:
//	  - quizz_instrument_quizz_id_seq
//	  - user_user_id_seq
type registryFile struct {
	Version   int      `yaml:"version"`
	Sequences []string `yaml:"sequences"`
}

// FileLoader reads a versioned YAML registry on every Load, so an edited file
// takes effect on the next run without a restart.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load(ctx context.Context) (Registry, error) {
	if err := ctx.Err(); err != nil {
		return Registry{}, err
	}

	raw, err := os.ReadFile(l.Path)
	if err != nil {
		return Registry{}, errors.Wrapf(err, "read registry file %s", l.Path)
	}

	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Registry{}, errors.Wrapf(err, "decode registry file %s", l.Path)
	}
	if file.Version <= 0 {
		return Registry{}, fmt.Errorf("registry file %s: version must be positive", l.Path)
	}
	if len(file.Sequences) == 0 {
		return Registry{}, fmt.Errorf("registry file %s declares no sequences", l.Path)
	}

	reg, err := NewRegistry(file.Version, file.Sequences...)
	if err != nil {
		return Registry{}, errors.Wrapf(err, "registry file %s", l.Path)
	}
	return reg, nil
}

// NewLoader picks the file loader when path is set and the built-in registry
// otherwise.
func NewLoader(path string) Loader {
	if path == "" {
		return StaticLoader{Registry: DefaultRegistry()}
	}
	return FileLoader{Path: path}
}
