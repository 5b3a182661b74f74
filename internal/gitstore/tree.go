package gitstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// TreeEntry is one row of a git tree object.
type TreeEntry struct {
	Mode string // e.g. 100644, 040000
	Type string // blob or tree
	SHA  string
	Name string
}

// parseTreeEntry parses a single `git ls-tree` output line:
// "<mode> <type> <sha>\t<name>". Names may contain spaces.
func parseTreeEntry(line string) (TreeEntry, error) {
	tabIdx := strings.IndexByte(line, '\t')
	if tabIdx < 0 {
		return TreeEntry{}, fmt.Errorf("malformed ls-tree line: %q", line)
	}

	fields := strings.Fields(line[:tabIdx])
	if len(fields) != 3 {
		return TreeEntry{}, fmt.Errorf("malformed ls-tree line: %q", line)
	}

	return TreeEntry{
		Mode: fields[0],
		Type: fields[1],
		SHA:  fields[2],
		Name: line[tabIdx+1:],
	}, nil
}

// lsTree lists the immediate entries of a tree object.
func (s *Store) lsTree(ctx context.Context, treeSHA string) ([]TreeEntry, error) {
	out, err := s.run(ctx, "ls-tree", treeSHA)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var entries []TreeEntry
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		entry, err := parseTreeEntry(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// mktree writes a tree object from entries and returns its sha.
// Entries are sorted into git's canonical tree order first.
func (s *Store) mktree(ctx context.Context, entries []TreeEntry) (string, error) {
	sortTreeEntries(entries)

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s %s\t%s\n", e.Mode, e.Type, e.SHA, e.Name)
	}
	return s.runWithInput(ctx, b.String(), "mktree")
}

// sortTreeEntries sorts entries in git tree order: byte-wise by name, with
// subtree names compared as if they had a trailing slash.
func sortTreeEntries(entries []TreeEntry) {
	key := func(e TreeEntry) string {
		if e.Type == "tree" {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(entries, func(i, j int) bool {
		return key(entries[i]) < key(entries[j])
	})
}

// BuildTree returns a tree identical to baseTree except that the entry at
// path is replaced (or added) with the given blob. Every other entry,
// including sibling files and nested subtrees, keeps its original sha; only
// the subtrees along the path are reconstructed. An empty baseTree builds a
// fresh tree containing just the new file.
func (s *Store) BuildTree(ctx context.Context, baseTree, path, blobSHA string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("tree path is required")
	}

	var entries []TreeEntry
	if baseTree != "" {
		var err error
		entries, err = s.lsTree(ctx, baseTree)
		if err != nil {
			return "", err
		}
	}

	name, rest, nested := strings.Cut(path, "/")

	newEntry := TreeEntry{Mode: "100644", Type: "blob", SHA: blobSHA, Name: name}
	if nested {
		// Recurse into the subtree along the path, creating it if absent.
		subTree := ""
		for _, e := range entries {
			if e.Name == name && e.Type == "tree" {
				subTree = e.SHA
				break
			}
		}
		subSHA, err := s.BuildTree(ctx, subTree, rest, blobSHA)
		if err != nil {
			return "", err
		}
		newEntry = TreeEntry{Mode: "040000", Type: "tree", SHA: subSHA, Name: name}
	}

	replaced := false
	for i, e := range entries {
		if e.Name == name {
			entries[i] = newEntry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, newEntry)
	}

	return s.mktree(ctx, entries)
}
