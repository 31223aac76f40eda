package store

import (
	"path/filepath"
	"testing"

	"GiftFM/model"
)

func openTestStore(t *testing.T) *SettingsStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "settings"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMappingCRUD(t *testing.T) {
	s := openTestStore(t)

	if m, err := s.GetMapping("99"); err != nil || m != nil {
		t.Fatalf("missing mapping should return (nil, nil), got (%+v, %v)", m, err)
	}

	want := &model.GiftAudioMapping{
		GiftID:   "99",
		GiftName: "Rose",
		Enabled:  true,
		AudioFiles: []model.AudioEntry{
			{Path: "/tmp/a.mp3", Volume: 0.8},
			{Path: "/tmp/b.mp3", Volume: 1.0},
		},
	}
	if err := s.SetMapping(want); err != nil {
		t.Fatalf("SetMapping failed: %v", err)
	}

	got, err := s.GetMapping("99")
	if err != nil {
		t.Fatalf("GetMapping failed: %v", err)
	}
	if got.GiftName != "Rose" || !got.Enabled || len(got.AudioFiles) != 2 {
		t.Errorf("mapping did not round-trip: %+v", got)
	}

	// 覆盖写
	want.Enabled = false
	if err := s.SetMapping(want); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetMapping("99")
	if got.Enabled {
		t.Error("overwrite should replace the stored mapping")
	}

	if err := s.DeleteMapping("99"); err != nil {
		t.Fatalf("DeleteMapping failed: %v", err)
	}
	if m, _ := s.GetMapping("99"); m != nil {
		t.Errorf("deleted mapping should be gone, got %+v", m)
	}

	// 删除不存在的映射不报错
	if err := s.DeleteMapping("99"); err != nil {
		t.Errorf("deleting a missing mapping should not error: %v", err)
	}
}

func TestSetMappingRequiresGiftID(t *testing.T) {
	s := openTestStore(t)
	if err := s.SetMapping(&model.GiftAudioMapping{}); err == nil {
		t.Error("expected error for mapping without gift id")
	}
}

func TestListMappings(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"1", "2", "3"} {
		s.SetMapping(&model.GiftAudioMapping{
			GiftID:     id,
			Enabled:    true,
			AudioFiles: []model.AudioEntry{{Path: "/tmp/" + id + ".mp3", Volume: 1}},
		})
	}

	list, err := s.ListMappings()
	if err != nil {
		t.Fatalf("ListMappings failed: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("expected 3 mappings, got %d", len(list))
	}
}

func TestLegacyMappingNormalizedOnRead(t *testing.T) {
	s := openTestStore(t)

	vol := 0.7
	s.SetMapping(&model.GiftAudioMapping{
		GiftID:    "55",
		Enabled:   true,
		AudioPath: "/tmp/legacy.mp3",
		Volume:    &vol,
	})

	got, err := s.GetMapping("55")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.AudioFiles) != 1 {
		t.Fatalf("legacy mapping should normalize to one playlist entry, got %+v", got)
	}
	if got.AudioFiles[0].Path != "/tmp/legacy.mp3" || got.AudioFiles[0].Volume != 0.7 {
		t.Errorf("unexpected normalized entry: %+v", got.AudioFiles[0])
	}

	// 规范化结果已落盘，再次读取无需迁移
	again, _ := s.GetMapping("55")
	if len(again.AudioFiles) != 1 {
		t.Errorf("normalized form should persist, got %+v", again)
	}
}

func TestPruneAudioPath(t *testing.T) {
	s := openTestStore(t)

	s.SetMapping(&model.GiftAudioMapping{
		GiftID:  "1",
		Enabled: true,
		AudioFiles: []model.AudioEntry{
			{Path: "/tmp/keep.mp3", Volume: 1},
			{Path: "/tmp/gone.mp3", Volume: 1},
		},
	})
	s.SetMapping(&model.GiftAudioMapping{
		GiftID:     "2",
		Enabled:    true,
		AudioFiles: []model.AudioEntry{{Path: "/tmp/gone.mp3", Volume: 1}},
	})

	if err := s.PruneAudioPath("/tmp/gone.mp3"); err != nil {
		t.Fatalf("PruneAudioPath failed: %v", err)
	}

	m1, _ := s.GetMapping("1")
	if len(m1.AudioFiles) != 1 || m1.AudioFiles[0].Path != "/tmp/keep.mp3" {
		t.Errorf("prune should drop only the deleted path, got %+v", m1.AudioFiles)
	}

	// 播放列表清空后映射本身保留
	m2, _ := s.GetMapping("2")
	if m2 == nil {
		t.Fatal("mapping should survive an emptied playlist")
	}
	if len(m2.AudioFiles) != 0 {
		t.Errorf("expected empty playlist, got %+v", m2.AudioFiles)
	}
}

func TestGlobalVolume(t *testing.T) {
	s := openTestStore(t)

	if v := s.GlobalVolume(); v != 1.0 {
		t.Errorf("default global volume should be 1.0, got %v", v)
	}

	if err := s.SetGlobalVolume(0.35); err != nil {
		t.Fatalf("SetGlobalVolume failed: %v", err)
	}
	if v := s.GlobalVolume(); v != 0.35 {
		t.Errorf("expected 0.35, got %v", v)
	}
}
