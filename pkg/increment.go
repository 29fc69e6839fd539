package nextver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	// ErrInvalidVersion is returned when a version cannot be incremented.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrUnknownReleaseType is returned by ParseReleaseType.
	ErrUnknownReleaseType = errors.New("unknown release type")
)

// InitialVersion stands in for the last version of a project that has never
// been tagged.
const InitialVersion = "0.0.0"

// ReleaseType names the semver component to increment.
type ReleaseType string

const (
	Major      ReleaseType = "major"
	Minor      ReleaseType = "minor"
	Patch      ReleaseType = "patch"
	PreMajor   ReleaseType = "premajor"
	PreMinor   ReleaseType = "preminor"
	PrePatch   ReleaseType = "prepatch"
	Prerelease ReleaseType = "prerelease"
)

// ParseReleaseType validates s. The empty string is accepted and means
// "derive the release type from the commits".
func ParseReleaseType(s string) (ReleaseType, error) {
	switch rt := ReleaseType(strings.ToLower(strings.TrimSpace(s))); rt {
	case "", Major, Minor, Patch, PreMajor, PreMinor, PrePatch, Prerelease:
		return rt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReleaseType, s)
	}
}

// Pre returns the prerelease form of a major, minor or patch release type.
// Other values are returned unchanged.
func (rt ReleaseType) Pre() ReleaseType {
	switch rt {
	case Major, Minor, Patch:
		return "pre" + rt
	}
	return rt
}

// normalizeVersion ensures the version string starts with a "v", the form
// golang.org/x/mod/semver expects.
func normalizeVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

// IsPrerelease reports whether version carries a prerelease component.
func IsPrerelease(version string) bool {
	return semver.Prerelease(normalizeVersion(version)) != ""
}

// parseSemVer extracts the numerical components and prerelease from a semver
// string. A leading "v" is accepted, build metadata is dropped.
func parseSemVer(version string) (major, minor, patch int, prerelease string, err error) {
	canonical := normalizeVersion(version)
	if !semver.IsValid(canonical) {
		err = fmt.Errorf("%w: %q", ErrInvalidVersion, version)
		return
	}
	canonical, _, _ = strings.Cut(canonical, "+")
	vWithoutPrefix := strings.TrimPrefix(canonical, "v")
	parts := strings.SplitN(vWithoutPrefix, "-", 2)
	numParts := strings.Split(parts[0], ".")
	if len(numParts) != 3 {
		err = fmt.Errorf("%w: %q needs major.minor.patch", ErrInvalidVersion, version)
		return
	}

	if major, err = strconv.Atoi(numParts[0]); err != nil {
		return
	}
	if minor, err = strconv.Atoi(numParts[1]); err != nil {
		return
	}
	if patch, err = strconv.Atoi(numParts[2]); err != nil {
		return
	}
	if len(parts) == 2 {
		prerelease = parts[1]
	}
	return
}

// formatSemVer constructs a semver string without the "v" prefix.
func formatSemVer(major, minor, patch int, prerelease string) string {
	base := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if prerelease != "" {
		return base + "-" + prerelease
	}
	return base
}

// startPrerelease returns the first prerelease of a train.
func startPrerelease(preid string) string {
	if preid != "" {
		return preid + ".0"
	}
	return "0"
}

// Increment returns version bumped by rt, optionally seeding prerelease
// identifiers with preid. The result never has a "v" prefix.
//
// Releasing a prerelease that already sits on the target component only drops
// the prerelease part: 1.0.0-rc.1 bumped by major is 1.0.0.
func Increment(version string, rt ReleaseType, preid string) (string, error) {
	major, minor, patch, prerelease, err := parseSemVer(version)
	if err != nil {
		if !errors.Is(err, ErrInvalidVersion) {
			err = fmt.Errorf("%w: %q: %v", ErrInvalidVersion, version, err)
		}
		return "", err
	}

	switch rt {
	case Major:
		if prerelease == "" || minor != 0 || patch != 0 {
			major++
		}
		minor, patch, prerelease = 0, 0, ""
	case Minor:
		if prerelease == "" || patch != 0 {
			minor++
		}
		patch, prerelease = 0, ""
	case Patch:
		if prerelease == "" {
			patch++
		}
		prerelease = ""
	case PreMajor:
		major++
		minor, patch, prerelease = 0, 0, startPrerelease(preid)
	case PreMinor:
		minor++
		patch, prerelease = 0, startPrerelease(preid)
	case PrePatch:
		patch++
		prerelease = startPrerelease(preid)
	case Prerelease:
		parts := strings.Split(prerelease, ".")
		switch {
		case prerelease == "":
			// No prerelease yet: bump patch and start a train.
			patch++
			prerelease = startPrerelease(preid)
		case preid != "" && parts[0] != preid:
			prerelease = startPrerelease(preid)
		default:
			// Bump the last numeric identifier, or start counting.
			bumped := false
			for i := len(parts) - 1; i >= 0; i-- {
				if n, err := strconv.Atoi(parts[i]); err == nil {
					parts[i] = strconv.Itoa(n + 1)
					bumped = true
					break
				}
			}
			if !bumped {
				parts = append(parts, "0")
			}
			prerelease = strings.Join(parts, ".")
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReleaseType, rt)
	}

	return formatSemVer(major, minor, patch, prerelease), nil
}

// compareVersions orders two versions without their "v" prefix.
func compareVersions(a, b string) int {
	return semver.Compare(normalizeVersion(a), normalizeVersion(b))
}
