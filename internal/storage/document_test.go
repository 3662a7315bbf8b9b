/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSaveOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	h := &DocHandle{Path: path, Doc: sampleDocument(t)}
	if err := Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !reflect.DeepEqual(h.Doc.Snapshot(), got.Doc.Snapshot()) {
		t.Fatalf("round trip changed the document")
	}
	// no temp files left behind
	ents, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left: %s", e.Name())
		}
	}
}

func TestSaveKeepsBoundedBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	h, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.Backups = 2
	for i := 0; i < 5; i++ {
		if err := Save(h); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	if n := len(backups(h)); n != 2 {
		t.Fatalf("expected 2 backups, got %d", n)
	}
}

func TestOpenFallsBackToBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	h := &DocHandle{Path: path, Doc: sampleDocument(t)}
	if err := Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// second save creates a backup of the first
	if err := Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(got.Doc.Connectors()) != 2 {
		t.Fatalf("backup not restored")
	}
}

func TestOpenWithoutBackupFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	if err := os.WriteFile(path, []byte(`{"version":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil || !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestValidateDocument(t *testing.T) {
	data, err := Encode(sampleDocument(t))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := ValidateDocument(data); err != nil {
		t.Fatalf("encoded document must validate: %v", err)
	}
	bad := []string{
		`{"version":1,"shapes":[],"connectors":[{"id":"c","source":{},"target":{},"mode":"zigzag","path":[],"xywh":{"x":0,"y":0,"w":0,"h":0}}]}`,
		`{"version":1,"shapes":[],"connectors":[{"id":"c","source":{},"target":{},"mode":"straight","path":[[[0,0],[0,0],[0,0],[0,0],2,0]],"xywh":{"x":0,"y":0,"w":0,"h":0}}]}`,
		`{"version":1,"shapes":[{"id":"s","xywh":{"x":0,"y":0,"w":-1,"h":1}}],"connectors":[]}`,
		`not json`,
	}
	for i, b := range bad {
		if err := ValidateDocument([]byte(b)); !errors.Is(err, ErrInvalidDocument) {
			t.Fatalf("case %d: expected ErrInvalidDocument, got %v", i, err)
		}
	}
}

func TestAutosaveCrashSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	h := &DocHandle{Path: path, Doc: sampleDocument(t)}
	snap, err := AutosaveCrashSnapshot(h)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot: %v", err)
	}
	if filepath.Dir(snap) != h.BackupsDir() {
		t.Fatalf("snapshot outside backups dir: %s", snap)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("autosave must not write the document file")
	}
	b, err := os.ReadFile(snap)
	if err != nil || ValidateDocument(b) != nil {
		t.Fatalf("snapshot unreadable: %v", err)
	}
}
