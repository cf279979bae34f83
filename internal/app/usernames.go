package app

import "diceroom/internal/domain"

// usernameTable is the bidirectional name ⇄ session map. Both directions
// are mutated together under the Registry lock, and release is always a
// compare-and-delete: only the recorded owner can free a name, so two
// interleaved requests can never drop the wrong owner's mapping.
//
// The Anonymous default never enters the table.
type usernameTable struct {
	ownerOf map[string]domain.SessionID
	nameOf  map[domain.SessionID]string
}

func newUsernameTable() usernameTable {
	return usernameTable{
		ownerOf: make(map[string]domain.SessionID),
		nameOf:  make(map[domain.SessionID]string),
	}
}

// owner returns the session currently holding name.
func (t usernameTable) owner(name string) (domain.SessionID, bool) {
	sid, ok := t.ownerOf[name]
	return sid, ok
}

// name returns the name sid currently holds, if any.
func (t usernameTable) name(sid domain.SessionID) (string, bool) {
	n, ok := t.nameOf[sid]
	return n, ok
}

// claim records sid as the owner of name. The caller must have verified
// availability; claim overwrites only its own previous name.
func (t usernameTable) claim(sid domain.SessionID, name string) {
	if prev, ok := t.nameOf[sid]; ok && t.ownerOf[prev] == sid {
		delete(t.ownerOf, prev)
	}
	t.ownerOf[name] = sid
	t.nameOf[sid] = name
}

// release frees name only if sid is its recorded owner. Returns whether
// anything was removed.
func (t usernameTable) release(sid domain.SessionID, name string) bool {
	owner, ok := t.ownerOf[name]
	if !ok || owner != sid {
		return false
	}
	delete(t.ownerOf, name)
	if t.nameOf[sid] == name {
		delete(t.nameOf, sid)
	}
	return true
}

// evict force-clears a stale mapping regardless of owner. Used only on
// the orphan-healing path; normal flows go through release.
func (t usernameTable) evict(name string) {
	if sid, ok := t.ownerOf[name]; ok {
		delete(t.ownerOf, name)
		if t.nameOf[sid] == name {
			delete(t.nameOf, sid)
		}
	}
}
