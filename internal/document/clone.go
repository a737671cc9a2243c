package document

import (
	"github.com/huandu/go-clone"
)

// Clone returns a fully independent deep copy of the document.
// Slices, maps and pointers are all duplicated; time values are copied
// as scalars.
func (d Document) Clone() Document {
	return clone.Clone(d).(Document)
}

func cloneField(f Field) Field {
	return clone.Clone(f).(Field)
}

func cloneDesign(d Design) Design {
	return clone.Clone(d).(Design)
}

func cloneBehavior(b Behavior) Behavior {
	return clone.Clone(b).(Behavior)
}
