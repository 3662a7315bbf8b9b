/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"goconnector/internal/domain"
	applog "goconnector/internal/log"
)

const (
	BackupsDirName = "backups"
	// DefaultBackups is the number of backups kept per document.
	DefaultBackups = 3

	backupStamp = "20060102-150405.000000"
)

// DocHandle keeps track of a document loaded from or saved to disk.
type DocHandle struct {
	Path string
	Doc  *domain.Document
	// Backups caps the number of timestamped backups; zero means DefaultBackups.
	Backups int
}

// BackupsDir returns the backup directory next to the document file.
func (h *DocHandle) BackupsDir() string {
	return filepath.Join(filepath.Dir(h.Path), BackupsDirName)
}

// Create writes an empty document to path and returns its handle.
func Create(path string) (*DocHandle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("document path is required")
	}
	h := &DocHandle{Path: path, Doc: domain.NewDocument()}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Open loads a document. If the file cannot be read, parsed or validated, it
// falls back to the latest backup.
func Open(path string) (*DocHandle, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("path", path))
	doc, err := readDocument(path)
	if err == nil {
		return &DocHandle{Path: path, Doc: doc}, nil
	}
	h := &DocHandle{Path: path}
	bdoc, berr := openFromLatestBackup(h)
	if berr != nil {
		return nil, fmt.Errorf("open document: %w; backup attempt: %v", err, berr)
	}
	l.Warn("document unreadable, restored latest backup", slog.Any("err", err))
	h.Doc = bdoc
	return h, nil
}

func readDocument(path string) (*domain.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

// Decode validates b against the document schema and builds the document.
func Decode(b []byte) (*domain.Document, error) {
	if err := ValidateDocument(b); err != nil {
		return nil, err
	}
	var f domain.File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return domain.NewDocumentFromFile(f)
}

// Encode renders the document in its human-readable persisted form.
func Encode(doc *domain.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc.Snapshot(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the document to disk with transactional semantics and a
// timestamped backup of the previous file (if present).
func Save(h *DocHandle) error {
	if h == nil || h.Doc == nil {
		return errors.New("nil DocHandle")
	}
	if h.Path == "" {
		return errors.New("invalid DocHandle: missing path")
	}
	data, err := Encode(h.Doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(h.Path), 0o755); err != nil {
		return fmt.Errorf("ensure document dir: %w", err)
	}

	// If a current file exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(h.Path); statErr == nil {
		bdir := h.BackupsDir()
		bname := fmt.Sprintf("%s.%s.bak", filepath.Base(h.Path), time.Now().Format(backupStamp))
		if cerr := copyFile(h.Path, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current document: %w", cerr)
		}
		pruneBackups(h)
	}

	// Transactional write: to temp file in same directory, then rename over target
	dir := filepath.Dir(h.Path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(h.Path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp document: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(h.Path); err == nil {
		_ = os.Remove(h.Path)
	}
	if rerr := os.Rename(temp, h.Path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace document: %w", rerr)
	}
	return nil
}

// AutosaveCrashSnapshot writes the in-memory document next to the backups
// without touching the document file. It returns the snapshot path.
func AutosaveCrashSnapshot(h *DocHandle) (string, error) {
	if h == nil || h.Doc == nil || h.Path == "" {
		return "", errors.New("invalid DocHandle")
	}
	data, err := Encode(h.Doc)
	if err != nil {
		return "", err
	}
	bdir := h.BackupsDir()
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.json", filepath.Base(h.Path), time.Now().Format(backupStamp)))
	if err := writeFileSync(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// backups lists the timestamped backups of h, oldest first.
func backups(h *DocHandle) []string {
	ents, err := os.ReadDir(h.BackupsDir())
	if err != nil {
		return nil
	}
	prefix := filepath.Base(h.Path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(h.BackupsDir(), name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out
}

func pruneBackups(h *DocHandle) {
	keep := h.Backups
	if keep <= 0 {
		keep = DefaultBackups
	}
	list := backups(h)
	for len(list) > keep {
		if err := os.Remove(list[0]); err != nil {
			applog.WithComponent("storage").Warn("prune backup failed", slog.String("path", list[0]), slog.Any("err", err))
		}
		list = list[1:]
	}
}

// openFromLatestBackup tries the backups newest first.
func openFromLatestBackup(h *DocHandle) (*domain.Document, error) {
	list := backups(h)
	if len(list) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(list) - 1; i >= 0; i-- {
		doc, err := readDocument(list[i])
		if err == nil {
			return doc, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("read latest backup: %w", lastErr)
}
