package fileres

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// FileChecker reports whether a file is known without touching the disk.
type FileChecker interface {
	ContainsFile(path string) bool
}

// Locator finds the files behind module declarations and crate names.
type Locator struct {
	log       zerolog.Logger
	session   FileChecker
	rustSrc   string
	cargoHome string
}

// NewLocator creates a Locator. rustSrc is the standard library source
// directory and cargoHome the cargo home holding registry sources; either
// may be empty to skip that lookup. session may be nil.
func NewLocator(session FileChecker, rustSrc, cargoHome string, opts ...Option) *Locator {
	o := buildOptions(opts)
	return &Locator{
		log:       o.logger,
		session:   session,
		rustSrc:   rustSrc,
		cargoHome: cargoHome,
	}
}

func (l *Locator) exists(path string) bool {
	if l.session != nil && l.session.ContainsFile(path) {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ModuleFile returns the file for `mod name;` declared in a module whose
// submodules live in parentDir: name.rs, then name/mod.rs.
func (l *Locator) ModuleFile(name, parentDir string) (string, bool) {
	for _, p := range []string{
		filepath.Join(parentDir, name+".rs"),
		filepath.Join(parentDir, name, "mod.rs"),
	} {
		if l.exists(p) {
			return p, true
		}
	}
	return "", false
}

// CrateFile returns the library root of the crate visible as name from
// fromPath. Cargo manifests above fromPath are consulted first, then the
// standard library sources.
func (l *Locator) CrateFile(name, fromPath string) (string, bool) {
	name = crateName(name)
	if p, ok := l.cargoCrate(name, filepath.Dir(fromPath)); ok {
		return p, true
	}
	if p, ok := l.stdCrate(name); ok {
		return p, true
	}
	l.log.Debug().Str("crate", name).Str("from", fromPath).Msg("crate not found")
	return "", false
}

// CrateRoot returns the root file of the crate containing file: the lib
// (or else main) target of the nearest Cargo.toml, or failing that the
// nearest lib.rs or main.rs above file.
func (l *Locator) CrateRoot(file string) (string, bool) {
	for dir := filepath.Dir(file); ; dir = filepath.Dir(dir) {
		if m, ok := l.readManifest(dir); ok {
			if p, ok := l.libEntry(dir, m); ok {
				return p, true
			}
			if p := filepath.Join(dir, "src", "main.rs"); l.exists(p) {
				return p, true
			}
		}
		if filepath.Dir(dir) == dir {
			break
		}
	}
	for dir := filepath.Dir(file); ; dir = filepath.Dir(dir) {
		for _, root := range []string{"lib.rs", "main.rs"} {
			if p := filepath.Join(dir, root); l.exists(p) {
				return p, true
			}
		}
		if filepath.Dir(dir) == dir {
			return "", false
		}
	}
}

func (l *Locator) stdCrate(name string) (string, bool) {
	if l.rustSrc == "" {
		return "", false
	}
	for _, p := range []string{
		filepath.Join(l.rustSrc, "lib"+name, "lib.rs"),
		filepath.Join(l.rustSrc, name, "lib.rs"),
		filepath.Join(l.rustSrc, name, "src", "lib.rs"),
	} {
		if l.exists(p) {
			return p, true
		}
	}
	return "", false
}

type manifest struct {
	Package *struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Lib *struct {
		Name string `toml:"name"`
		Path string `toml:"path"`
	} `toml:"lib"`
	Dependencies    map[string]any `toml:"dependencies"`
	DevDependencies map[string]any `toml:"dev-dependencies"`
	Workspace       *struct {
		Dependencies map[string]any `toml:"dependencies"`
	} `toml:"workspace"`
}

// dependency is one entry of a dependency table, in either the short
// `name = "1.0"` or the table form.
type dependency struct {
	pkg       string
	path      string
	workspace bool
}

func (m *manifest) dependency(name string) (dependency, bool) {
	tables := []map[string]any{m.Dependencies, m.DevDependencies}
	if m.Workspace != nil {
		tables = append(tables, m.Workspace.Dependencies)
	}
	for _, table := range tables {
		for key, val := range table {
			if crateName(key) != name {
				continue
			}
			d := dependency{pkg: key}
			if t, ok := val.(map[string]any); ok {
				if s, ok := t["package"].(string); ok {
					d.pkg = s
				}
				d.path, _ = t["path"].(string)
				d.workspace, _ = t["workspace"].(bool)
			}
			if d.workspace {
				continue
			}
			return d, true
		}
	}
	return dependency{}, false
}

func (l *Locator) readManifest(dir string) (*manifest, bool) {
	path := filepath.Join(dir, "Cargo.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		l.log.Warn().Err(err).Str("path", path).Msg("cannot parse Cargo.toml")
		return nil, false
	}
	return &m, true
}

// cargoCrate walks up from dir through every Cargo.toml, matching the
// package itself and then its dependencies. Dependencies inherited from a
// workspace are resolved by the workspace manifest further up.
func (l *Locator) cargoCrate(name, dir string) (string, bool) {
	for {
		if m, ok := l.readManifest(dir); ok {
			if l.ownsName(m, name) {
				if p, ok := l.libEntry(dir, m); ok {
					return p, true
				}
			}
			if dep, ok := m.dependency(name); ok {
				if dep.path != "" {
					depDir := filepath.Join(dir, dep.path)
					if dm, ok := l.readManifest(depDir); ok {
						return l.libEntry(depDir, dm)
					}
					return l.libEntry(depDir, &manifest{})
				}
				if p, ok := l.registryCrate(dep.pkg); ok {
					return p, true
				}
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func (l *Locator) ownsName(m *manifest, name string) bool {
	if m.Lib != nil && m.Lib.Name != "" {
		return crateName(m.Lib.Name) == name
	}
	return m.Package != nil && crateName(m.Package.Name) == name
}

func (l *Locator) libEntry(dir string, m *manifest) (string, bool) {
	p := filepath.Join(dir, "src", "lib.rs")
	if m.Lib != nil && m.Lib.Path != "" {
		p = filepath.Join(dir, m.Lib.Path)
	}
	return p, l.exists(p)
}

// registryCrate finds the newest downloaded source of pkg in the cargo
// registry.
func (l *Locator) registryCrate(pkg string) (string, bool) {
	if l.cargoHome == "" {
		return "", false
	}
	pattern := filepath.Join(l.cargoHome, "registry", "src", "*", pkg+"-*")
	dirs, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		l.log.Warn().Err(err).Str("pattern", pattern).Msg("bad registry pattern")
		return "", false
	}
	var best, bestVersion string
	for _, d := range dirs {
		version := strings.TrimPrefix(filepath.Base(d), pkg+"-")
		if version == "" || version[0] < '0' || version[0] > '9' {
			continue
		}
		if best == "" || compareVersions(version, bestVersion) > 0 {
			best, bestVersion = d, version
		}
	}
	if best == "" {
		return "", false
	}
	m, ok := l.readManifest(best)
	if !ok {
		m = &manifest{}
	}
	return l.libEntry(best, m)
}

// compareVersions orders dotted versions numerically where possible.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := range min(len(as), len(bs)) {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			if an != bn {
				return an - bn
			}
			continue
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

// crateName maps a package name to the identifier code refers to it by.
func crateName(pkg string) string {
	return strings.ReplaceAll(pkg, "-", "_")
}

// Crates lists the crate names visible from dir through Cargo manifests,
// sorted.
func (l *Locator) Crates(dir string) []string {
	seen := map[string]bool{}
	for {
		if m, ok := l.readManifest(dir); ok {
			if m.Package != nil {
				seen[crateName(m.Package.Name)] = true
			}
			for _, t := range []map[string]any{m.Dependencies, m.DevDependencies} {
				for k := range t {
					seen[crateName(k)] = true
				}
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
