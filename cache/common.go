package cache

import "github.com/awesome-os/universal-git-sub008/plumbing"

const (
	Byte = 1 << (iota * 10)
	KiByte
	MiByte
	GiByte
)

type Object interface {
	Add(o plumbing.EncodedObject)
	Get(k plumbing.Hash) plumbing.EncodedObject
	Clear()
}
