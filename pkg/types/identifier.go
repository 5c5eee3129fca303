package types

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

const (
	// MaxNamespaceLevels is the deepest namespace: metalake, catalog, schema.
	MaxNamespaceLevels = 3
	separator          = "."
)

var (
	ErrIllegalName      = errors.New("illegal name")
	ErrIllegalNamespace = errors.New("illegal namespace")
)

// Namespace is the ordered list of parent names of an identifier.
// Namespaces are comparable values.
type Namespace struct {
	levels [MaxNamespaceLevels]string
	length int
}

// NewNamespace returns a namespace of the given levels. Every level must be a
// non-empty name.
func NewNamespace(levels ...string) (Namespace, error) {
	var ns Namespace
	if len(levels) > MaxNamespaceLevels {
		return ns, errors.Wrapf(ErrIllegalNamespace, "namespace %q has more than %d levels", strings.Join(levels, separator), MaxNamespaceLevels)
	}
	for i, l := range levels {
		if l == "" {
			return Namespace{}, errors.Wrapf(ErrIllegalNamespace, "level %d of namespace %q is empty", i, strings.Join(levels, separator))
		}
		ns.levels[i] = l
	}
	ns.length = len(levels)
	return ns, nil
}

// MustNamespace is like NewNamespace but panics on invalid input.
func MustNamespace(levels ...string) Namespace {
	ns, err := NewNamespace(levels...)
	if err != nil {
		panic(err)
	}
	return ns
}

func (ns Namespace) Length() int {
	return ns.length
}

func (ns Namespace) IsEmpty() bool {
	return ns.length == 0
}

func (ns Namespace) Levels() []string {
	return append([]string(nil), ns.levels[:ns.length]...)
}

func (ns Namespace) Level(i int) string {
	if i < 0 || i >= ns.length {
		return ""
	}
	return ns.levels[i]
}

func (ns Namespace) String() string {
	return strings.Join(ns.levels[:ns.length], separator)
}

// Child returns the identifier of name within ns.
func (ns Namespace) Child(name string) (NameIdentifier, error) {
	if name == "" {
		return NameIdentifier{}, errors.Wrapf(ErrIllegalName, "empty name in namespace %q", ns.String())
	}
	return NameIdentifier{namespace: ns, name: name}, nil
}

// NameIdentifier is the full path of a catalog object: metalake, catalog,
// schema and object names, of which only the leading levels are present.
// Identifiers are comparable values.
type NameIdentifier struct {
	namespace Namespace
	name      string
}

// NewNameIdentifier builds an identifier from its levels. The last level is the
// object name.
func NewNameIdentifier(levels ...string) (NameIdentifier, error) {
	if len(levels) == 0 {
		return NameIdentifier{}, errors.Wrap(ErrIllegalName, "identifier has no levels")
	}
	ns, err := NewNamespace(levels[:len(levels)-1]...)
	if err != nil {
		return NameIdentifier{}, err
	}
	return ns.Child(levels[len(levels)-1])
}

// MustNameIdentifier is like NewNameIdentifier but panics on invalid input.
func MustNameIdentifier(levels ...string) NameIdentifier {
	ident, err := NewNameIdentifier(levels...)
	if err != nil {
		panic(err)
	}
	return ident
}

// ParseNameIdentifier splits the dotted string form of an identifier.
func ParseNameIdentifier(s string) (NameIdentifier, error) {
	if s == "" {
		return NameIdentifier{}, errors.Wrap(ErrIllegalName, "empty identifier")
	}
	return NewNameIdentifier(strings.Split(s, separator)...)
}

func (id NameIdentifier) Namespace() Namespace {
	return id.namespace
}

func (id NameIdentifier) Name() string {
	return id.name
}

// Validate reports an error for the zero identifier.
func (id NameIdentifier) Validate() error {
	if id.name == "" {
		return errors.Wrap(ErrIllegalName, "identifier name is empty")
	}
	return nil
}

// Depth is the number of levels including the name.
func (id NameIdentifier) Depth() int {
	if id.name == "" {
		return 0
	}
	return id.namespace.length + 1
}

func (id NameIdentifier) Levels() []string {
	if id.name == "" {
		return nil
	}
	return append(id.namespace.Levels(), id.name)
}

// Level returns the i-th level counting the name as the last one.
func (id NameIdentifier) Level(i int) string {
	if i == id.namespace.length {
		return id.name
	}
	return id.namespace.Level(i)
}

// AsNamespace turns the identifier into the namespace of its children.
func (id NameIdentifier) AsNamespace() (Namespace, error) {
	if err := id.Validate(); err != nil {
		return Namespace{}, err
	}
	return NewNamespace(id.Levels()...)
}

// Parent returns the identifier one level up. The second result is false for
// a top level identifier.
func (id NameIdentifier) Parent() (NameIdentifier, bool) {
	if id.namespace.length == 0 {
		return NameIdentifier{}, false
	}
	levels := id.namespace.Levels()
	p, err := NewNameIdentifier(levels...)
	return p, err == nil
}

// CheckKind verifies that the identifier has the depth of an entity of kind k.
func (id NameIdentifier) CheckKind(k EntityKind) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if id.Depth() != k.Depth() {
		return errors.Wrapf(ErrIllegalNamespace, "%s identifier %q must have %d levels", k, id.String(), k.Depth())
	}
	return nil
}

func (id NameIdentifier) String() string {
	if id.namespace.length == 0 {
		return id.name
	}
	return id.namespace.String() + separator + id.name
}

type nameIdentifierJSON struct {
	Namespace []string `json:"namespace"`
	Name      string   `json:"name"`
}

func (id NameIdentifier) MarshalJSON() ([]byte, error) {
	ns := id.namespace.Levels()
	if ns == nil {
		ns = []string{}
	}
	return json.Marshal(nameIdentifierJSON{Namespace: ns, Name: id.name})
}

func (id *NameIdentifier) UnmarshalJSON(b []byte) error {
	var v nameIdentifierJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := NewNameIdentifier(append(v.Namespace, v.Name)...)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
