// SPDX-License-Identifier: MIT
package storage

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestRecordingName(t *testing.T) {
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 10, 19, 15, 4, 0, 0, time.UTC), "Record from 3.04 PM, 19.10.26.wav"},
		{time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC), "Record from 9.30 AM, 02.01.25.wav"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := RecordingName(tt.at); got != tt.want {
				t.Errorf("RecordingName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDirSinkSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink, err := NewDirSink(fs, "/recordings")
	if err != nil {
		t.Fatalf("NewDirSink() error = %v", err)
	}

	path, err := sink.Save("take.wav", []byte("RIFF"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if path != "/recordings/take.wav" {
		t.Errorf("path = %q", path)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil || !bytes.Equal(data, []byte("RIFF")) {
		t.Errorf("saved data = %q, %v", data, err)
	}
	if ok, _ := afero.Exists(fs, path+".part"); ok {
		t.Error("temporary file left behind")
	}

	names, err := sink.List(".wav")
	if err != nil || len(names) != 1 || names[0] != "take.wav" {
		t.Errorf("List() = %v, %v", names, err)
	}
}

func TestDirSinkRejectsEmptyName(t *testing.T) {
	sink, err := NewDirSink(afero.NewMemMapFs(), "/r")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"", "  ", "/"} {
		if _, err := sink.Save(name, nil); err == nil {
			t.Errorf("Save(%q) should fail", name)
		}
	}
}

func TestDirSinkStripsDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink, _ := NewDirSink(fs, "/r")
	path, err := sink.Save("../../etc/take.wav", []byte{1})
	if err != nil {
		t.Fatal(err)
	}
	if path != "/r/take.wav" {
		t.Errorf("path = %q, want /r/take.wav", path)
	}
}

func TestDirSinkReadOnlyFs(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := base.MkdirAll("/r", 0o755); err != nil {
		t.Fatal(err)
	}
	sink := &DirSink{fs: afero.NewReadOnlyFs(base), dir: "/r"}
	if _, err := sink.Save("take.wav", []byte{1}); err == nil {
		t.Error("Save() on a read-only filesystem should fail")
	}
}
