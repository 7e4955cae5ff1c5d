package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"time"

	"github.com/dsnet/compress/bzip2"

	"github.com/oshokin/modloader-dist/internal/domain/dist"
)

// Tar writes bzip2-compressed tar archives.
type Tar struct {
	// modified is stamped on every entry, truncated to whole seconds.
	modified time.Time
}

// NewTar creates a tar serializer stamping entries with modified.
func NewTar(modified time.Time) *Tar {
	return &Tar{modified: modified.Truncate(time.Second)}
}

// Serialize writes m to w as a bzip2-compressed tar archive.
func (t *Tar) Serialize(w io.Writer, m *dist.Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}

	bz, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	if err != nil {
		return fmt.Errorf("create bzip2 writer: %w", err)
	}

	tw := tar.NewWriter(bz)

	for i := range m.Entries {
		if err = t.writeEntry(tw, &m.Entries[i]); err != nil {
			return fmt.Errorf("tar %s: %w", m.Entries[i].Destination, err)
		}
	}

	if err = tw.Close(); err != nil {
		return fmt.Errorf("finish tar: %w", err)
	}

	if err = bz.Close(); err != nil {
		return fmt.Errorf("finish bzip2: %w", err)
	}

	return nil
}

// writeEntry writes the header and, for files, the content.
func (t *Tar) writeEntry(tw *tar.Writer, e *dist.Entry) error {
	header := &tar.Header{
		Name:     e.Destination,
		Mode:     int64(e.Mode.Perm()),
		ModTime:  t.modified,
		Typeflag: tar.TypeDir,
	}

	if e.IsDirectory {
		return tw.WriteHeader(header)
	}

	data, err := readContent(e)
	if err != nil {
		return err
	}

	header.Typeflag = tar.TypeReg
	header.Size = int64(len(data))

	if err = tw.WriteHeader(header); err != nil {
		return err
	}

	_, err = tw.Write(data)

	return err
}
