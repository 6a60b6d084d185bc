package ntfileinfo

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func layout(ct, at, wt, cht int64, attrs uint32, size int) []byte {
	b := make([]byte, size)
	binary.LittleEndian.PutUint64(b[0:], uint64(ct))
	binary.LittleEndian.PutUint64(b[8:], uint64(at))
	binary.LittleEndian.PutUint64(b[16:], uint64(wt))
	binary.LittleEndian.PutUint64(b[24:], uint64(cht))
	binary.LittleEndian.PutUint32(b[32:], attrs)
	return b
}

func TestDecodeBasicInformationOffsets(t *testing.T) {
	b := layout(1, 2, 3, 4, 0x20, BasicInformationSize)

	bi, err := DecodeBasicInformation(b)
	require.NoError(t, err)
	require.Equal(t, BasicInformation{
		CreationTime:   1,
		LastAccessTime: 2,
		LastWriteTime:  3,
		ChangeTime:     4,
		FileAttributes: 0x20,
	}, bi)
}

func TestDecodeBasicInformationIgnoresPadding(t *testing.T) {
	b := layout(10, 20, 30, 40, 0x10, basicInformationBufferSize)
	b[36], b[37], b[38], b[39] = 0xde, 0xad, 0xbe, 0xef

	bi, err := DecodeBasicInformation(b)
	require.NoError(t, err)
	require.Equal(t, uint32(0x10), bi.FileAttributes)
	require.Equal(t, int64(40), bi.ChangeTime)
}

func TestDecodeBasicInformationShortBuffer(t *testing.T) {
	_, err := DecodeBasicInformation(make([]byte, BasicInformationSize-1))
	require.Error(t, err)
}

func TestDecodeBasicInformationNegativeTicks(t *testing.T) {
	b := layout(-1, 0, 0, 0, 0, BasicInformationSize)

	bi, err := DecodeBasicInformation(b)
	require.NoError(t, err)
	require.Equal(t, int64(-1), bi.CreationTime)
}

func TestBasicInformationRecord(t *testing.T) {
	unixEpoch := int64(116444736000000000)
	bi := BasicInformation{
		CreationTime:   unixEpoch,
		LastAccessTime: unixEpoch + 1,
		LastWriteTime:  unixEpoch + TicksPerSecond,
		ChangeTime:     unixEpoch + 2*TicksPerSecond,
		FileAttributes: uint32(AttributeArchive | AttributeHidden),
	}

	rec := bi.Record(`.\some\..\path.txt`)
	require.Equal(t, `.\some\..\path.txt`, rec.Path)
	require.True(t, rec.CreationTime.Equal(time.Unix(0, 0)))
	require.True(t, rec.LastAccessTime.Equal(time.Unix(0, 100)))
	require.True(t, rec.LastWriteTime.Equal(time.Unix(1, 0)))
	require.True(t, rec.ChangeTime.Equal(time.Unix(2, 0)))
	require.Equal(t, AttributeArchive|AttributeHidden, rec.Attributes)
}

func TestRecordEqual(t *testing.T) {
	bi := BasicInformation{CreationTime: 5, LastWriteTime: 9, FileAttributes: 1}
	a := bi.Record("a")
	b := bi.Record("a")
	require.True(t, a.Equal(b))

	bi.LastWriteTime++
	require.False(t, a.Equal(bi.Record("a")))
	require.False(t, a.Equal(nil))

	var none *Record
	require.True(t, none.Equal(nil))
}
