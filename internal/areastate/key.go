package areastate

import "fmt"

// InstanceKey identifies one running instance of an area. Two visits to the same
// area produce different keys; the key is stable for the whole stay.
type InstanceKey uint32

func (k InstanceKey) String() string { return fmt.Sprintf("0x%X", uint32(k)) }
