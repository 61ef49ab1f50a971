// Package storage owns the harvester's on-disk layout.
//
// Photos live at <root>/<folder_key>/photo_<index>.<ext>. The number of
// regular files in a species folder is the only resume state: it is always
// recomputed from the filesystem and never cached.
//
// Writes are atomic. Data is streamed into <root>/.partial/<uuid> and renamed
// into the species folder once complete, so a crash never leaves a truncated
// photo that would count towards the satisfied threshold.
//
// Usage:
//
//	manager, err := storage.NewManager("fish_photos")
//	if err != nil {
//	    return err
//	}
//
//	n, err := manager.CountFiles("blue_tang")
//	path, err := manager.SavePhoto(body, "blue_tang", storage.PhotoFileName(3, "jpeg"))
package storage
