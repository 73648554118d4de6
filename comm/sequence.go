package comm

import (
	"fmt"
	"sync"
	"time"
)

// CycleSequence 24小时内不会重复的32位序号生成器
// 构成为: 0 | seconds 17 bit | node 5 bit | sequence 9 bit
// 单节点每秒超过512个序号时阻塞到下一秒
type CycleSequence struct {
	sync.Mutex
	seconds  int32 // 截止到午夜0点的秒数
	node     int32 // 节点id, 取值范围：0-31
	sequence int32
}

const (
	sequenceMask   = int32(0x01ff)
	nodeMask       = int32(0x1f)
	sequenceBits   = uint(9)
	nodeBits       = uint(5)
	nodeShift      = sequenceBits
	timestampShift = sequenceBits + nodeBits
)

func NewCycleSequence(node int32) *CycleSequence {
	return &CycleSequence{node: node & nodeMask}
}

func (s *CycleSequence) NextVal() int32 {
	s.Lock()
	defer s.Unlock()
	now := passedSeconds()
	if s.seconds == now {
		s.sequence = (s.sequence + 1) & sequenceMask
		if s.sequence == 0 {
			// 本秒序号用尽，等待下一秒
			for now == s.seconds {
				time.Sleep(time.Millisecond)
				now = passedSeconds()
			}
		}
	} else {
		s.sequence = 0
	}
	s.seconds = now
	return (s.seconds << timestampShift) | (s.node << nodeShift) | s.sequence
}

func (s *CycleSequence) String() string {
	return fmt.Sprintf("%d:%d:%d", s.seconds, s.node, s.sequence)
}

func passedSeconds() int32 {
	t := time.Now()
	return int32(t.Hour()*3600 + t.Minute()*60 + t.Second())
}
