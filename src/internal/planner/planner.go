// Package planner decides which artifacts an update has to replace.
//
// Versions are compared by exact string inequality. Any difference,
// including a downgrade or a change in case, triggers an update; version
// strings are never parsed or ordered.
package planner

import "github.com/enderiumcraft/rbclauncher/src/pkg/models"

// Plan diffs the local install against the remote manifest
func Plan(local models.VersionState, remote *models.ReleaseManifest) models.UpdatePlan {
	if remote == nil {
		return models.UpdatePlan{}
	}
	return models.UpdatePlan{
		ContentNeeded: remote.Versions.ContentVersion != local.ContentVersion,
		BinaryNeeded:  remote.Versions.BinaryVersion != local.BinaryVersion,
	}
}
