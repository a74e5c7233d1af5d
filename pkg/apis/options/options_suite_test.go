package options

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestOptionsSuite(t *testing.T) {
	RegisterFailHandler(Fail)

	RunSpecs(t, "Options Suite")
}
