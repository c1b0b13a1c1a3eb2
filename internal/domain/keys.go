package domain

import "fmt"

const (
	CheckpointPrefix = "checkpoint:"
	ArchivePrefix    = "archive:"
)

func CheckpointKey(id string) []byte {
	return []byte(fmt.Sprintf("%s%s", CheckpointPrefix, id))
}

func ArchiveKey(id string) []byte {
	return []byte(fmt.Sprintf("%s%s", ArchivePrefix, id))
}
