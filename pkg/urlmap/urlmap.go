// Package urlmap translates public documentation URLs into bucket keys.
//
// Documentation objects are laid out in the bucket following the versioned
// documentation convention:
//
//	{prefix}/{project}/v/{edition}/{path}
//	{prefix}/{project}/builds/{build}/{path}
//
// where the edition "__main" is the default edition served when a request
// names only the project.
package urlmap

import "strings"

const defaultEdition = "__main"

// MapBucketPath maps a public request path (with any leading slash and
// mount prefix already stripped) to the bucket key of the object that
// serves it. The function is pure; it never touches the bucket.
func MapBucketPath(bucketPrefix, requestPath string) string {
	segments := strings.Split(requestPath, "/")
	project := strings.ToLower(segments[0])

	var parts []string
	switch {
	case len(segments) == 1:
		parts = []string{project, "v", defaultEdition}
	case strings.EqualFold(segments[1], "v"):
		parts = editionParts(project, "v", segments)
	case strings.EqualFold(segments[1], "builds"):
		parts = editionParts(project, "builds", segments)
	case segments[1] == "_dashboard-assets":
		// Dashboard assets are stored under their public path verbatim.
		parts = segments
	default:
		parts = append([]string{project, "v", defaultEdition}, indexTrailingSlash(segments[1:])...)
	}

	if bucketPrefix != "" {
		parts = append([]string{bucketPrefix}, parts...)
	}

	return strings.TrimSuffix(strings.Join(parts, "/"), "/")
}

// editionParts handles the /v/ and /builds/ namespaces, which share the
// same shape: the third segment names an edition or build id and the rest
// is a path inside it.
func editionParts(project, namespace string, segments []string) []string {
	switch len(segments) {
	case 2:
		return []string{project, namespace}
	case 3:
		if segments[2] == "" {
			return []string{project, namespace, "index.html"}
		}
		// A bare edition URL serves the edition's index page.
		return []string{project, namespace, segments[2], "index.html"}
	default:
		parts := []string{project, namespace, segments[2]}
		return append(parts, indexTrailingSlash(segments[3:])...)
	}
}

// indexTrailingSlash rewrites a trailing empty segment, ie a trailing
// slash on the request path, into an index.html lookup.
func indexTrailingSlash(segments []string) []string {
	if len(segments) > 0 && segments[len(segments)-1] == "" {
		segments[len(segments)-1] = "index.html"
	}
	return segments
}
