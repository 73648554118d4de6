package codec

import "fmt"

// IHead is a fixed-layout header read from the wire.
type IHead interface {
	Decode([]byte) error
	fmt.Stringer
}

// OHead is a fixed-layout header written to the wire.
type OHead interface {
	Encode() []byte
	fmt.Stringer
}

// Sequence32 32位序号生成器
type Sequence32 interface {
	NextVal() int32
}
