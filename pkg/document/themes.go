package document

import (
	"github.com/matzehuels/sitecraft/pkg/changelog"
	"github.com/matzehuels/sitecraft/pkg/datamap"
	"github.com/matzehuels/sitecraft/pkg/errors"
)

// ActiveTheme returns the number of the theme currently being edited.
func (d *Document) ActiveTheme() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.theme
}

// ThemeBackups returns the stored backup keys in lexical order.
func (d *Document) ThemeBackups() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedKeys(d.backups)
}

// BackupTheme stores the current pages, global data and website layout
// under Theme{n}Backup, replacing any previous backup with that key.
func (d *Document) BackupTheme(n int) error {
	detail := changelog.Payload{"op": "backup_theme", "theme": n}
	if n < 1 {
		return d.fail(errors.New(errors.ErrCodeInvalidInput, "theme number must be positive, got %d", n), detail)
	}
	key := ThemeBackupKey(n)

	d.mu.Lock()
	d.storeBackupLocked(key)
	d.rev++
	d.mu.Unlock()

	d.emit(event{changelog.UserAction, changelog.Payload{"action": "theme_backup", "key": key}})
	return nil
}

// SwitchTheme backs up the active theme into its slot and restores theme n
// from Theme{n}Backup. A theme without a backup starts with no pages. Pages
// that disappear are queued as pending deletions. Switching to the active
// theme is a no-op.
func (d *Document) SwitchTheme(n int) error {
	detail := changelog.Payload{"op": "switch_theme", "theme": n}
	if n < 1 {
		return d.fail(errors.New(errors.ErrCodeInvalidInput, "theme number must be positive, got %d", n), detail)
	}

	d.mu.Lock()
	from := d.theme
	if n == from {
		d.mu.Unlock()
		return nil
	}
	d.storeBackupLocked(ThemeBackupKey(from))

	backup, restored := d.backups[ThemeBackupKey(n)]
	pages := map[string][]Instance{}
	var global map[string]map[string]any
	var layout map[string]any
	if restored {
		pages = clonePages(backup.Pages)
		global = cloneGlobal(backup.Global)
		layout = datamap.Clone(backup.Layout)
	}
	for slug, insts := range pages {
		if len(insts) == 0 {
			delete(pages, slug)
			continue
		}
		renumber(insts)
	}

	for slug := range d.pages {
		if _, kept := pages[slug]; !kept {
			d.deleted[slug] = true
		}
	}
	d.ids = map[string]string{}
	for slug, insts := range pages {
		delete(d.deleted, slug)
		for _, in := range insts {
			d.ids[in.ID] = slug
		}
	}
	d.pages = pages
	d.global = global
	d.layout = layout
	d.theme = n
	d.rev++
	d.mu.Unlock()

	d.emit(event{changelog.ThemeChanged, changelog.Payload{"from": from, "to": n, "restored": restored}})
	return nil
}

func (d *Document) storeBackupLocked(key string) {
	next := make(map[string]ThemeBackup, len(d.backups)+1)
	for k, b := range d.backups {
		next[k] = b
	}
	next[key] = ThemeBackup{
		Pages:     clonePages(d.pages),
		Global:    cloneGlobal(d.global),
		Layout:    datamap.Clone(d.layout),
		CreatedAt: d.now().UTC(),
	}
	d.backups = next
}
