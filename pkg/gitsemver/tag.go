package gitsemver

import "strings"

// ProjectNamePlaceholder is replaced by the project name in a custom tag prefix.
const ProjectNamePlaceholder = "{projectName}"

// FormatTag joins a tag prefix and a version into a tag name.
func FormatTag(tagPrefix, version string) string {
	return tagPrefix + version
}

// FormatTagPrefix decides the tag namespace of a project.
//
// An explicit versionTagPrefix wins (with {projectName} substituted), then the
// shared "v" prefix when versions are synced, then "<projectName>-".
func FormatTagPrefix(versionTagPrefix *string, projectName string, syncVersions bool) string {
	if versionTagPrefix != nil {
		return strings.ReplaceAll(*versionTagPrefix, ProjectNamePlaceholder, projectName)
	}
	if syncVersions {
		return "v"
	}
	return projectName + "-"
}
