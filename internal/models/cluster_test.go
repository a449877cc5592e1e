// ABOUTME: Tests for Cluster construction, membership and validation
// ABOUTME: Covers level ownership rules and chunk count accumulation
package models

import (
	"strings"
	"testing"
)

func TestNewClusterID(t *testing.T) {
	id := NewClusterID()
	if !strings.HasPrefix(id, "cluster_") {
		t.Errorf("NewClusterID() = %q, want cluster_ prefix", id)
	}
	if len(id) != len("cluster_")+8 {
		t.Errorf("NewClusterID() = %q, want 8-char suffix", id)
	}
	if id == NewClusterID() {
		t.Error("consecutive ids should differ")
	}
}

func TestNewCluster(t *testing.T) {
	meta := ClusterMetadata{CanonicalName: "cooking"}
	c := NewCluster(0, meta)

	if c.ID == "" {
		t.Error("NewCluster should assign an id")
	}
	if c.Level != 0 {
		t.Errorf("Level = %d, want 0", c.Level)
	}
	if c.Metadata.CanonicalName != "cooking" {
		t.Errorf("CanonicalName = %q, want %q", c.Metadata.CanonicalName, "cooking")
	}
	if !c.IsLeaf() {
		t.Error("level 0 cluster should be a leaf")
	}
	if NewCluster(1, meta).IsLeaf() {
		t.Error("level 1 cluster should not be a leaf")
	}
}

func TestCluster_AddFragment(t *testing.T) {
	c := NewCluster(0, ClusterMetadata{CanonicalName: "cooking"})
	c.AddFragment(Fragment{ID: 1, Text: "braising basics"})
	c.AddFragment(Fragment{ID: 2, Text: "knife care"})

	if len(c.Fragments) != 2 {
		t.Fatalf("Fragments length = %d, want 2", len(c.Fragments))
	}
	if c.ChunkCount != 2 {
		t.Errorf("ChunkCount = %d, want 2", c.ChunkCount)
	}
}

func TestCluster_AddChunkID(t *testing.T) {
	c := NewCluster(0, ClusterMetadata{CanonicalName: "cooking"})
	c.AddChunkID(10)
	c.AddChunkID(11)

	if len(c.ChunkIDs) != 2 {
		t.Fatalf("ChunkIDs length = %d, want 2", len(c.ChunkIDs))
	}
	if c.ChunkCount != 2 {
		t.Errorf("ChunkCount = %d, want 2", c.ChunkCount)
	}
}

func TestCluster_AddChild(t *testing.T) {
	parent := NewCluster(1, ClusterMetadata{CanonicalName: "domestic life"})
	child1 := NewCluster(0, ClusterMetadata{CanonicalName: "cooking"})
	child1.AddFragment(Fragment{ID: 1, Text: "a"})
	child1.AddFragment(Fragment{ID: 2, Text: "b"})
	child2 := NewCluster(0, ClusterMetadata{CanonicalName: "cleaning"})
	child2.AddFragment(Fragment{ID: 3, Text: "c"})

	parent.AddChild(child1)
	parent.AddChild(child2)

	if len(parent.ChildClusterIDs) != 2 {
		t.Fatalf("ChildClusterIDs length = %d, want 2", len(parent.ChildClusterIDs))
	}
	if parent.ChunkCount != 3 {
		t.Errorf("parent ChunkCount = %d, want 3", parent.ChunkCount)
	}
	if child1.ParentID != parent.ID {
		t.Errorf("child1 ParentID = %q, want %q", child1.ParentID, parent.ID)
	}
	if child2.ParentID != parent.ID {
		t.Errorf("child2 ParentID = %q, want %q", child2.ParentID, parent.ID)
	}
}

func TestCluster_FragmentIDs(t *testing.T) {
	inMemory := NewCluster(0, ClusterMetadata{CanonicalName: "cooking"})
	inMemory.AddFragment(Fragment{ID: 7, Text: "a"})
	inMemory.AddFragment(Fragment{ID: 8, Text: "b"})

	got := inMemory.FragmentIDs()
	if len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Errorf("FragmentIDs() = %v, want [7 8]", got)
	}

	lazy := NewCluster(0, ClusterMetadata{CanonicalName: "cooking"})
	lazy.AddChunkID(20)
	lazy.AddChunkID(21)

	got = lazy.FragmentIDs()
	if len(got) != 2 || got[0] != 20 || got[1] != 21 {
		t.Errorf("FragmentIDs() = %v, want [20 21]", got)
	}
}

func TestCluster_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cluster Cluster
		wantErr bool
	}{
		{
			name: "valid leaf",
			cluster: Cluster{
				ID:       "cluster_abc",
				Level:    0,
				Metadata: ClusterMetadata{CanonicalName: "cooking"},
			},
			wantErr: false,
		},
		{
			name: "missing id",
			cluster: Cluster{
				Metadata: ClusterMetadata{CanonicalName: "cooking"},
			},
			wantErr: true,
		},
		{
			name: "missing canonical name",
			cluster: Cluster{
				ID: "cluster_abc",
			},
			wantErr: true,
		},
		{
			name: "negative level",
			cluster: Cluster{
				ID:       "cluster_abc",
				Level:    -1,
				Metadata: ClusterMetadata{CanonicalName: "cooking"},
			},
			wantErr: true,
		},
		{
			name: "parent owning fragments",
			cluster: Cluster{
				ID:        "cluster_abc",
				Level:     1,
				Metadata:  ClusterMetadata{CanonicalName: "cooking"},
				Fragments: []Fragment{{ID: 1, Text: "a"}},
			},
			wantErr: true,
		},
		{
			name: "parent owning chunk ids",
			cluster: Cluster{
				ID:       "cluster_abc",
				Level:    1,
				Metadata: ClusterMetadata{CanonicalName: "cooking"},
				ChunkIDs: []int64{1},
			},
			wantErr: true,
		},
		{
			name: "leaf with children",
			cluster: Cluster{
				ID:              "cluster_abc",
				Level:           0,
				Metadata:        ClusterMetadata{CanonicalName: "cooking"},
				ChildClusterIDs: []string{"cluster_def"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cluster.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
