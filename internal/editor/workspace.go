package editor

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

const workspacePattern = "mediavault-edit-*"

// Workspace is a private scratch directory for one editor call.
type Workspace struct {
	Dir string
}

// NewWorkspace creates a fresh directory under base (the system temp dir when empty).
func NewWorkspace(base string) (*Workspace, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, err
		}
	}
	dir, err := os.MkdirTemp(base, workspacePattern)
	if err != nil {
		return nil, err
	}
	return &Workspace{Dir: dir}, nil
}

func globWorkspaces(base string) ([]string, error) {
	return filepath.Glob(filepath.Join(base, workspacePattern))
}

// Path returns the absolute path of a workspace file.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Write stores r under name.
func (w *Workspace) Write(name string, r io.Reader) error {
	f, err := os.Create(w.Path(name))
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.Dir)
}

// Output opens a produced file. The returned Output owns the workspace.
func (w *Workspace) Output(name string) (*Output, error) {
	f, err := os.Open(w.Path(name))
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat output: %w", err)
	}
	if st.Size() == 0 {
		f.Close()
		return nil, ErrEmptyOutput
	}
	ct := "application/octet-stream"
	switch ext := filepath.Ext(name); ext {
	case ".mp4":
		ct = "video/mp4"
	case ".mp3":
		ct = "audio/mpeg"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			ct = t
		}
	}
	return &Output{Name: name, Size: st.Size(), ContentType: ct, file: f, ws: w}, nil
}

// Output is the result of an editor call. Reading it streams the file;
// closing it deletes the workspace.
type Output struct {
	Name        string
	Size        int64
	ContentType string

	file *os.File
	ws   *Workspace
}

func (o *Output) Read(p []byte) (int, error) { return o.file.Read(p) }

// Close releases the file and removes the workspace.
func (o *Output) Close() error {
	ferr := o.file.Close()
	if err := o.ws.Close(); err != nil {
		return err
	}
	return ferr
}
