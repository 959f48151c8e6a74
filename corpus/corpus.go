// Package corpus reads and writes labeled text files in the "label,text" line format.
package corpus

// Entry is a single labeled document.
type Entry struct {
	Label string
	Text  string
}

// Labeled maps labels to their documents. Labels keep first-seen order and
// documents keep insertion order within a label; duplicates are allowed.
type Labeled struct {
	order []string
	texts map[string][]string
}

// New returns an empty corpus.
func New() *Labeled {
	return &Labeled{texts: make(map[string][]string)}
}

// Add appends text under label.
func (c *Labeled) Add(label, text string) {
	if c.texts == nil {
		c.texts = make(map[string][]string)
	}
	if _, ok := c.texts[label]; !ok {
		c.order = append(c.order, label)
	}
	c.texts[label] = append(c.texts[label], text)
}

// Has reports whether label has at least one document.
func (c *Labeled) Has(label string) bool {
	if c == nil {
		return false
	}
	_, ok := c.texts[label]
	return ok
}

// Labels returns the labels in first-seen order.
func (c *Labeled) Labels() []string {
	if c == nil {
		return nil
	}
	return cloneStrings(c.order)
}

// Texts returns a copy of the documents stored under label.
func (c *Labeled) Texts(label string) []string {
	if c == nil {
		return nil
	}
	return cloneStrings(c.texts[label])
}

// Len returns the total number of documents.
func (c *Labeled) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, texts := range c.texts {
		n += len(texts)
	}
	return n
}

// Entries flattens the corpus, label by label in first-seen order.
func (c *Labeled) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, 0, c.Len())
	for _, label := range c.order {
		for _, text := range c.texts[label] {
			out = append(out, Entry{Label: label, Text: text})
		}
	}
	return out
}

// Only returns a new corpus holding just label's documents. The result is
// empty when label is absent.
func (c *Labeled) Only(label string) *Labeled {
	out := New()
	for _, text := range c.Texts(label) {
		out.Add(label, text)
	}
	return out
}

// Map returns a new corpus with fn applied to every document. The first error
// from fn stops the walk and is returned.
func (c *Labeled) Map(fn func(text string) (string, error)) (*Labeled, error) {
	out := New()
	for _, e := range c.Entries() {
		mapped, err := fn(e.Text)
		if err != nil {
			return nil, err
		}
		out.Add(e.Label, mapped)
	}
	return out, nil
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
