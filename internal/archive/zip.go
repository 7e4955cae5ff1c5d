package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/oshokin/modloader-dist/internal/domain/dist"
)

const (
	// creatorUnix in the high byte of CreatorVersion tells extractors the
	// external attributes carry a Unix st_mode.
	creatorUnix = 3
	// zipVersion20 is the APPNOTE version that introduced deflate and directories.
	zipVersion20 = 20
	// msdosDir is the MS-DOS directory attribute in the low byte of ExternalAttrs.
	msdosDir = 0x10
)

// Zip writes deflate-compressed zip archives.
type Zip struct {
	// modified is stamped on every entry.
	modified time.Time
}

// NewZip creates a zip serializer stamping entries with modified.
func NewZip(modified time.Time) *Zip {
	return &Zip{modified: modified}
}

// Serialize writes m to w as a zip archive.
func (z *Zip) Serialize(w io.Writer, m *dist.Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for i := range m.Entries {
		if err := z.writeEntry(zw, &m.Entries[i]); err != nil {
			return fmt.Errorf("zip %s: %w", m.Entries[i].Destination, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}

	return nil
}

// writeEntry writes a single directory record or file.
func (z *Zip) writeEntry(zw *zip.Writer, e *dist.Entry) error {
	header := z.header(e)

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	if e.IsDirectory {
		return nil
	}

	data, err := readContent(e)
	if err != nil {
		return err
	}

	_, err = writer.Write(data)

	return err
}

// header builds the zip header with the permission bits packed into ExternalAttrs.
func (z *Zip) header(e *dist.Entry) *zip.FileHeader {
	header := &zip.FileHeader{
		Name:           e.Destination,
		Modified:       z.modified,
		CreatorVersion: creatorUnix<<8 | zipVersion20,
		Method:         zip.Deflate,
	}

	perm := uint32(e.Mode.Perm())

	if e.IsDirectory {
		header.Method = zip.Store
		header.ExternalAttrs = (modeTypeDirectory|perm)<<16 | msdosDir

		return header
	}

	header.ExternalAttrs = (modeTypeRegular | perm) << 16

	return header
}
