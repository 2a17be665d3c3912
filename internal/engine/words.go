package engine

import (
	"sort"
	"strings"

	"github.com/chronostack-lang/chronostack/internal/ir"
)

// Dictionary is the session-scoped word dictionary: an explicit mapping
// owned by the session, never module-level state. Later definitions shadow
// earlier ones. Names are stored without the leading colon, so `:double`
// defines the word that `double` invokes.
type Dictionary struct {
	words map[string][]ir.Instruction
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{words: make(map[string][]ir.Instruction)}
}

// canonicalWordName strips the definition-form leading colon.
func canonicalWordName(name string) string {
	return strings.TrimPrefix(name, ":")
}

// Define registers a word body under a name, shadowing any earlier
// definition.
func (d *Dictionary) Define(name string, body []ir.Instruction) {
	d.words[canonicalWordName(name)] = body
}

// Lookup returns a word's body.
func (d *Dictionary) Lookup(name string) ([]ir.Instruction, bool) {
	body, ok := d.words[canonicalWordName(name)]
	return body, ok
}

// Names returns all defined word names, sorted.
func (d *Dictionary) Names() []string {
	names := make([]string, 0, len(d.words))
	for name := range d.words {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes every definition; used by the REPL's .reset.
func (d *Dictionary) Clear() {
	d.words = make(map[string][]ir.Instruction)
}

// Export returns a copy of every definition, for session persistence.
func (d *Dictionary) Export() map[string][]ir.Instruction {
	out := make(map[string][]ir.Instruction, len(d.words))
	for name, body := range d.words {
		out[name] = body
	}
	return out
}

// Install replaces the dictionary contents with the given definitions.
func (d *Dictionary) Install(words map[string][]ir.Instruction) {
	d.words = make(map[string][]ir.Instruction, len(words))
	for name, body := range words {
		d.words[canonicalWordName(name)] = body
	}
}
