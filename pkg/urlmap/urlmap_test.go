package urlmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapBucketPath(t *testing.T) {
	testCases := []struct {
		bucketPrefix string
		requestPath  string
		expected     string
	}{
		{"", "myproject", "myproject/v/__main"},
		{"", "myproject/", "myproject/v/__main/index.html"},
		{"", "myproject/test.css", "myproject/v/__main/test.css"},
		{"", "myproject/index.html", "myproject/v/__main/index.html"},
		{"", "myproject/a/b/", "myproject/v/__main/a/b/index.html"},
		{"", "MyProject/index.html", "myproject/v/__main/index.html"},
		{"", "myproject/v", "myproject/v"},
		{"", "myproject/v/", "myproject/v/index.html"},
		{"", "myproject/v/dev", "myproject/v/dev/index.html"},
		{"", "myproject/v/dev/", "myproject/v/dev/index.html"},
		{"", "myproject/v/dev/index.html", "myproject/v/dev/index.html"},
		{"", "myproject/v/dev/a/b/index.html", "myproject/v/dev/a/b/index.html"},
		{"", "myproject/v/dev/a/b/", "myproject/v/dev/a/b/index.html"},
		{"", "myproject/builds/b123", "myproject/builds/b123/index.html"},
		{"", "myproject/builds/b123/a/", "myproject/builds/b123/a/index.html"},
		{"", "myproject/_dashboard-assets/app.js", "myproject/_dashboard-assets/app.js"},
		{"prefix", "myproject/", "prefix/myproject/v/__main/index.html"},
		{"prefix", "myproject/index.html", "prefix/myproject/v/__main/index.html"},
		{"prefix", "myproject/v/dev", "prefix/myproject/v/dev/index.html"},
		{"prefix", "myproject/v/dev/index.html", "prefix/myproject/v/dev/index.html"},
	}

	for _, tc := range testCases {
		t.Run(tc.requestPath, func(t *testing.T) {
			assert.Equal(t, tc.expected, MapBucketPath(tc.bucketPrefix, tc.requestPath))
		})
	}
}
