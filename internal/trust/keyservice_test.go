package trust

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestKeyService_ImportKey(t *testing.T) {
	alice := testPublicKey(t, newTestEntity(t, "alice"))
	mallory := testPublicKey(t, newTestEntity(t, "mallory"))

	tests := []struct {
		name          string
		stored        []*PublicKey
		downloaded    *PublicKey
		known         []string
		answer        bool
		wantImported  bool
		wantDownloads int
		wantPrompts   int
		wantWarnings  int
		wantErr       error
	}{
		{
			name:          "stored key without history is trusted",
			stored:        []*PublicKey{alice},
			wantDownloads: 0,
			wantPrompts:   0,
		},
		{
			name:   "stored key in history is trusted",
			stored: []*PublicKey{alice},
			known:  []string{alice.Fingerprint},
		},
		{
			name:          "unknown key is imported after confirmation",
			downloaded:    alice,
			answer:        true,
			wantImported:  true,
			wantDownloads: 1,
			wantPrompts:   1,
		},
		{
			name:          "unknown key matching history imports without warning",
			downloaded:    alice,
			known:         []string{strings.ToLower(alice.Fingerprint)},
			answer:        true,
			wantImported:  true,
			wantDownloads: 1,
			wantPrompts:   1,
		},
		{
			name:          "changed key warns once then imports",
			downloaded:    mallory,
			known:         []string{alice.Fingerprint},
			answer:        true,
			wantImported:  true,
			wantDownloads: 1,
			wantPrompts:   1,
			wantWarnings:  1,
		},
		{
			name:          "stored key outside history warns",
			stored:        []*PublicKey{mallory},
			downloaded:    mallory,
			known:         []string{alice.Fingerprint},
			answer:        true,
			wantImported:  true,
			wantDownloads: 1,
			wantPrompts:   1,
			wantWarnings:  1,
		},
		{
			name:          "declined key is rejected",
			downloaded:    alice,
			answer:        false,
			wantDownloads: 1,
			wantPrompts:   1,
			wantErr:       ErrVerificationFailed,
		},
		{
			name:          "declined changed key warns and is rejected",
			downloaded:    mallory,
			known:         []string{alice.Fingerprint},
			answer:        false,
			wantDownloads: 1,
			wantPrompts:   1,
			wantWarnings:  1,
			wantErr:       ErrVerificationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{keys: map[string]*PublicKey{}}
			for _, k := range tt.stored {
				store.keys[k.Fingerprint] = k
			}
			downloader := &fakeDownloader{key: tt.downloaded}
			importer := &fakeImporter{}
			input := &fakeInput{answer: tt.answer}
			output := &fakeOutput{}

			svc := NewKeyService(store, downloader, importer, output, input)
			keyID := alice.Fingerprint
			if tt.downloaded != nil {
				keyID = tt.downloaded.Fingerprint
			}

			result, err := svc.ImportKey(context.Background(), keyID, tt.known)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ImportKey() error = %v, want %v", err, tt.wantErr)
				}
				if len(importer.imported) != 0 {
					t.Errorf("importer called %d times after rejection", len(importer.imported))
				}
			} else if err != nil {
				t.Fatalf("ImportKey() unexpected error: %v", err)
			}

			if result.Imported != tt.wantImported {
				t.Errorf("Imported = %v, want %v", result.Imported, tt.wantImported)
			}
			if tt.wantImported && len(importer.imported) != 1 {
				t.Errorf("importer called %d times, want 1", len(importer.imported))
			}
			if downloader.calls != tt.wantDownloads {
				t.Errorf("downloads = %d, want %d", downloader.calls, tt.wantDownloads)
			}
			if len(input.prompts) != tt.wantPrompts {
				t.Errorf("prompts = %d, want %d", len(input.prompts), tt.wantPrompts)
			}
			if len(output.warnings) != tt.wantWarnings {
				t.Errorf("warnings = %d, want %d", len(output.warnings), tt.wantWarnings)
			}
		})
	}
}

func TestKeyService_PromptShowsKeyInfo(t *testing.T) {
	alice := testPublicKey(t, newTestEntity(t, "alice"))
	input := &fakeInput{answer: true}

	svc := NewKeyService(nil, &fakeDownloader{key: alice}, &fakeImporter{}, &fakeOutput{}, input)
	if _, err := svc.ImportKey(context.Background(), alice.ID, nil); err != nil {
		t.Fatalf("ImportKey() error: %v", err)
	}

	if !strings.Contains(input.prompts[0], alice.Fingerprint) {
		t.Errorf("prompt %q does not show fingerprint", input.prompts[0])
	}
	if !strings.Contains(input.prompts[0], "alice@example.com") {
		t.Errorf("prompt %q does not show identity", input.prompts[0])
	}
}

func TestKeyService_Errors(t *testing.T) {
	alice := testPublicKey(t, newTestEntity(t, "alice"))

	t.Run("importer error propagates unchanged", func(t *testing.T) {
		svc := NewKeyService(nil, &fakeDownloader{key: alice}, &fakeImporter{err: errBoom}, &fakeOutput{}, &fakeInput{answer: true})
		_, err := svc.ImportKey(context.Background(), alice.ID, nil)
		if !errors.Is(err, errBoom) {
			t.Fatalf("error = %v, want %v", err, errBoom)
		}
		if errors.Is(err, ErrVerificationFailed) {
			t.Error("importer error must not be reported as verification failure")
		}
	})

	t.Run("download error", func(t *testing.T) {
		input := &fakeInput{answer: true}
		svc := NewKeyService(nil, &fakeDownloader{err: errBoom}, &fakeImporter{}, &fakeOutput{}, input)
		_, err := svc.ImportKey(context.Background(), alice.ID, nil)
		if !errors.Is(err, errBoom) {
			t.Fatalf("error = %v, want %v", err, errBoom)
		}
		if len(input.prompts) != 0 {
			t.Error("user prompted without a key")
		}
	})

	t.Run("confirmation error", func(t *testing.T) {
		importer := &fakeImporter{}
		svc := NewKeyService(nil, &fakeDownloader{key: alice}, importer, &fakeOutput{}, &fakeInput{err: errBoom})
		_, err := svc.ImportKey(context.Background(), alice.ID, nil)
		if !errors.Is(err, ErrVerificationFailed) || !errors.Is(err, errBoom) {
			t.Fatalf("error = %v, want verification failure wrapping %v", err, errBoom)
		}
		if len(importer.imported) != 0 {
			t.Error("key imported after confirmation error")
		}
	})
}
