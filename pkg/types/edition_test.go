// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Tech", "tech"},
		{"  Science & Nature ", "science-nature"},
		{"AI/ML -- News!", "ai-ml-news"},
		{"2026 Elections", "2026-elections"},
		{"Café", "caf"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.name))
		})
	}
}

func TestStructureValidate(t *testing.T) {
	tests := []struct {
		name    string
		st      Structure
		wantErr bool
	}{
		{"empty", NewStructure(), false},
		{"disjoint", Structure{Today: []int64{1, 2}, Categories: map[string][]int64{"tech": {3}, "science": {4}}}, false},
		{"twice in today", Structure{Today: []int64{1, 1}}, true},
		{"today and category", Structure{Today: []int64{1}, Categories: map[string][]int64{"tech": {1}}}, true},
		{"two categories", Structure{Categories: map[string][]int64{"tech": {5}, "science": {5}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.st.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStructure)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStructureContains(t *testing.T) {
	old := Structure{Today: []int64{1}, Categories: map[string][]int64{"tech": {2}}}

	moved := Structure{Today: []int64{2, 3}, Categories: map[string][]int64{"tech": {1}}}
	assert.NoError(t, moved.Contains(old), "changing sections keeps presence")

	dropped := Structure{Today: []int64{1, 3}}
	err := dropped.Contains(old)
	assert.ErrorIs(t, err, ErrEvicted)
	assert.Contains(t, err.Error(), "article 2")

	assert.NoError(t, NewStructure().Contains(Structure{}))
}

func TestStructureSections(t *testing.T) {
	st := Structure{Today: []int64{1, 2}, Categories: map[string][]int64{"tech": {3}, "arts": {4}}}
	assert.Equal(t, map[int64]string{1: SectionToday, 2: SectionToday, 3: "tech", 4: "arts"}, st.Sections())
	assert.Equal(t, []string{"arts", "tech"}, st.Slugs())
	assert.Equal(t, 4, st.Len())
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true, 4: true}, st.IDs())
}

func TestStructureNormalize(t *testing.T) {
	st := Structure{Categories: map[string][]int64{"tech": {}, "arts": {7}}}.Normalize()

	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{"today":[],"categories":{"arts":[7]}}`, string(data))

	var zero Structure
	data, err = json.Marshal(zero.Normalize())
	require.NoError(t, err)
	assert.Equal(t, `{"today":[],"categories":{}}`, string(data))
}
