package ntfileinfo

import (
	"fmt"
	"strings"
)

// FileAttributes is the raw FILE_ATTRIBUTE_* bit field.
type FileAttributes uint32

const (
	AttributeReadonly           FileAttributes = 0x00000001
	AttributeHidden             FileAttributes = 0x00000002
	AttributeSystem             FileAttributes = 0x00000004
	AttributeDirectory          FileAttributes = 0x00000010
	AttributeArchive            FileAttributes = 0x00000020
	AttributeDevice             FileAttributes = 0x00000040
	AttributeNormal             FileAttributes = 0x00000080
	AttributeTemporary          FileAttributes = 0x00000100
	AttributeSparseFile         FileAttributes = 0x00000200
	AttributeReparsePoint       FileAttributes = 0x00000400
	AttributeCompressed         FileAttributes = 0x00000800
	AttributeOffline            FileAttributes = 0x00001000
	AttributeNotContentIndexed  FileAttributes = 0x00002000
	AttributeEncrypted          FileAttributes = 0x00004000
	AttributeIntegrityStream    FileAttributes = 0x00008000
	AttributeVirtual            FileAttributes = 0x00010000
	AttributeNoScrubData        FileAttributes = 0x00020000
	AttributeRecallOnOpen       FileAttributes = 0x00040000
	AttributePinned             FileAttributes = 0x00080000
	AttributeUnpinned           FileAttributes = 0x00100000
	AttributeRecallOnDataAccess FileAttributes = 0x00400000
)

var attributeNames = []struct {
	bit  FileAttributes
	name string
}{
	{AttributeReadonly, "READONLY"},
	{AttributeHidden, "HIDDEN"},
	{AttributeSystem, "SYSTEM"},
	{AttributeDirectory, "DIRECTORY"},
	{AttributeArchive, "ARCHIVE"},
	{AttributeDevice, "DEVICE"},
	{AttributeNormal, "NORMAL"},
	{AttributeTemporary, "TEMPORARY"},
	{AttributeSparseFile, "SPARSE_FILE"},
	{AttributeReparsePoint, "REPARSE_POINT"},
	{AttributeCompressed, "COMPRESSED"},
	{AttributeOffline, "OFFLINE"},
	{AttributeNotContentIndexed, "NOT_CONTENT_INDEXED"},
	{AttributeEncrypted, "ENCRYPTED"},
	{AttributeIntegrityStream, "INTEGRITY_STREAM"},
	{AttributeVirtual, "VIRTUAL"},
	{AttributeNoScrubData, "NO_SCRUB_DATA"},
	{AttributeRecallOnOpen, "RECALL_ON_OPEN"},
	{AttributePinned, "PINNED"},
	{AttributeUnpinned, "UNPINNED"},
	{AttributeRecallOnDataAccess, "RECALL_ON_DATA_ACCESS"},
}

// Names lists the set bits by name, lowest bit first. Bits without a
// name are collected into a trailing hex entry.
func (a FileAttributes) Names() []string {
	names := make([]string, 0, 4)
	rest := a
	for _, n := range attributeNames {
		if a&n.bit != 0 {
			names = append(names, n.name)
			rest &^= n.bit
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%X", uint32(rest)))
	}
	return names
}

func (a FileAttributes) String() string {
	if a == 0 {
		return "0"
	}
	return strings.Join(a.Names(), "|")
}

// IsDirectory reports whether the DIRECTORY bit is set.
func (a FileAttributes) IsDirectory() bool {
	return a&AttributeDirectory != 0
}
