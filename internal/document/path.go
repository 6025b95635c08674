package document

import "strconv"

// Path addresses a value inside a document, e.g. assignees[1].email.
// The empty Path is the document root.
type Path string

func (p Path) Key(key string) Path {
	if p == "" {
		return Path(key)
	}
	return p + "." + Path(key)
}

func (p Path) Index(i int) Path {
	return p + "[" + Path(strconv.Itoa(i)) + "]"
}

func (p Path) String() string {
	if p == "" {
		return "(root)"
	}
	return string(p)
}
