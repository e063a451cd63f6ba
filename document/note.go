package document

// NoteClass separates footnotes from endnotes.
type NoteClass int

const (
	FootNote NoteClass = iota
	EndNote
)

// Note is a foot- or endnote referenced from the text.
type Note struct {
	ID    string    `json:"id"`
	Class NoteClass `json:"class"`
	// Label overrides automatic numbering when non-empty.
	Label string `json:"label,omitempty"`
	Frame *Frame `json:"-"`
}

// NoteNumbering formats the automatic note label.
type NoteNumbering struct {
	Format NumberFormat   `json:"format"`
	Start  int            `json:"start"`
	Prefix string         `json:"prefix,omitempty"`
	Suffix string         `json:"suffix,omitempty"`
	Scope  NumberingScope `json:"scope,omitempty"`
}

// NumberingScope says where automatic note numbering restarts.
type NumberingScope int

const (
	BeginAtDocument NumberingScope = iota
	BeginAtPage
)

// NotesConfig configures note numbering and the footnote separator.
type NotesConfig struct {
	FootNotes NoteNumbering `json:"footNotes"`
	EndNotes  NoteNumbering `json:"endNotes"`

	// SeparatorWidth is the footnote separator length as a percentage of the
	// area width; SeparatorSpace is the gap above the first footnote.
	SeparatorWidth  float64 `json:"separatorWidth"`
	SeparatorSpace  float64 `json:"separatorSpace"`
	SeparatorWeight float64 `json:"separatorWeight"`
}

// DefaultNotesConfig returns arabic footnotes and roman endnotes.
func DefaultNotesConfig() NotesConfig {
	return NotesConfig{
		FootNotes:       NoteNumbering{Format: FormatDecimal, Start: 1},
		EndNotes:        NoteNumbering{Format: FormatRomanLower, Start: 1},
		SeparatorWidth:  25,
		SeparatorSpace:  6,
		SeparatorWeight: 0.5,
	}
}

// Citation marks a text fragment as a reference to a bibliography entry.
type Citation struct {
	Key string `json:"key"`
}

// BibEntry is one bibliography record.
type BibEntry struct {
	Key       string `json:"key" yaml:"key" toml:"key"`
	Type      string `json:"type,omitempty" yaml:"type" toml:"type"`
	Author    string `json:"author,omitempty" yaml:"author" toml:"author"`
	Title     string `json:"title,omitempty" yaml:"title" toml:"title"`
	Year      string `json:"year,omitempty" yaml:"year" toml:"year"`
	Publisher string `json:"publisher,omitempty" yaml:"publisher" toml:"publisher"`
	Journal   string `json:"journal,omitempty" yaml:"journal" toml:"journal"`
	URL       string `json:"url,omitempty" yaml:"url" toml:"url"`
}

// Field returns a record field by its lower-case name.
func (e *BibEntry) Field(name string) string {
	switch name {
	case "key", "identifier":
		return e.Key
	case "type", "bibliography-type":
		return e.Type
	case "author":
		return e.Author
	case "title":
		return e.Title
	case "year":
		return e.Year
	case "publisher":
		return e.Publisher
	case "journal":
		return e.Journal
	case "url":
		return e.URL
	}
	return ""
}
