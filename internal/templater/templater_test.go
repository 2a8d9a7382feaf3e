package templater

import (
	"testing"

	"gallarr/internal/domain"
)

func TestExecTemplate(t *testing.T) {
	album := domain.Album{ID: 438516, Title: "Sample Album"}
	chapter := domain.Chapter{ID: 438517, AlbumID: 438516, Order: 1, Title: "前編"}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "default",
			template: "{album:<.>} Ch. {num:3}{title: - <.>}",
			want:     "Sample Album Ch. 001 - 前編",
		},
		{
			name:     "bare number",
			template: "{num}",
			want:     "1",
		},
		{
			name:     "no variables",
			template: "static name",
			want:     "static name",
		},
		{
			name:     "unknown variable kept",
			template: "{album:<.>} {bogus}",
			want:     "Sample Album {bogus}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(album, chapter).ExecTemplate(tt.template)
			if got != tt.want {
				t.Errorf("ExecTemplate(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestExecTemplateEmptyTitles(t *testing.T) {
	album := domain.Album{ID: 1}
	chapter := domain.Chapter{ID: 2, Order: 12}

	got := New(album, chapter).ExecTemplate("{album:<.>} Ch. {num:3}{title: - <.>}")
	if got != " Ch. 012" {
		t.Errorf("ExecTemplate = %q", got)
	}
}
