package identifiers

import "sort"

// RoomID is the caller supplied name of a room. It is case-sensitive and it
// is never validated by the relay.
type RoomID string

// ClientID identifies a single live connection to the relay. It is assigned
// by the relay when the connection is accepted and it is never reused.
type ClientID string

func (r RoomID) String() string {
	return string(r)
}

func (c ClientID) String() string {
	return string(c)
}

type ClientIDs []ClientID

var _ sort.Interface = ClientIDs(nil)

func (c ClientIDs) Len() int           { return len(c) }
func (c ClientIDs) Less(i, j int) bool { return c[i] < c[j] }
func (c ClientIDs) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }

// Sorted returns a sorted copy.
func (c ClientIDs) Sorted() ClientIDs {
	ret := make(ClientIDs, len(c))
	copy(ret, c)
	sort.Sort(ret)

	return ret
}

// Without returns a copy without the given id.
func (c ClientIDs) Without(id ClientID) ClientIDs {
	ret := make(ClientIDs, 0, len(c))

	for _, v := range c {
		if v != id {
			ret = append(ret, v)
		}
	}

	return ret
}
