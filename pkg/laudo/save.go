package laudo

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteTo writes the document as a DOCX package. Parts that were not edited
// are copied from the source archive without recompression.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	mainXML, err := d.main.Bytes()
	if err != nil {
		return cw.n, NewDocumentError("serialize", d.path, err)
	}

	written := make(map[string]bool)
	for _, file := range d.reader.Files() {
		var replacement []byte
		switch file.Name {
		case documentPartName:
			replacement = mainXML
		case documentRelsPartName:
			if d.rels != nil && d.rels.dirty {
				if replacement, err = d.rels.bytes(); err != nil {
					return cw.n, NewDocumentError("serialize", d.path, err)
				}
			}
		case contentTypesPartName:
			if d.types != nil && d.types.dirty {
				if replacement, err = d.types.bytes(); err != nil {
					return cw.n, NewDocumentError("serialize", d.path, err)
				}
			}
		}

		if replacement != nil {
			err = writePart(zw, file.Name, replacement)
		} else {
			err = zw.Copy(file)
		}
		if err != nil {
			return cw.n, NewDocumentError("write", d.path, fmt.Errorf("%s: %w", file.Name, err))
		}
		written[file.Name] = true
	}

	// Parts created while editing.
	if d.rels != nil && !written[documentRelsPartName] {
		data, err := d.rels.bytes()
		if err != nil {
			return cw.n, NewDocumentError("serialize", d.path, err)
		}
		if err := writePart(zw, documentRelsPartName, data); err != nil {
			return cw.n, NewDocumentError("write", d.path, err)
		}
	}
	if d.types != nil && !written[contentTypesPartName] {
		data, err := d.types.bytes()
		if err != nil {
			return cw.n, NewDocumentError("serialize", d.path, err)
		}
		if err := writePart(zw, contentTypesPartName, data); err != nil {
			return cw.n, NewDocumentError("write", d.path, err)
		}
	}
	for _, m := range d.media {
		if err := writePart(zw, m.name, m.data); err != nil {
			return cw.n, NewDocumentError("write", d.path, fmt.Errorf("%s: %w", m.name, err))
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, NewDocumentError("write", d.path, fmt.Errorf("failed to close zip writer: %w", err))
	}
	return cw.n, nil
}

// SaveAs writes the document to path. The package is written to a temporary
// file in the same directory and renamed into place, so path either holds a
// complete document or does not exist.
func (d *Document) SaveAs(path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return NewDocumentError("save", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = d.WriteTo(tmp); err != nil {
		return NewDocumentError("save", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return NewDocumentError("save", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return NewDocumentError("save", path, err)
	}
	if err = tmp.Close(); err != nil {
		return NewDocumentError("save", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return NewDocumentError("save", path, err)
	}
	return nil
}

func writePart(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
