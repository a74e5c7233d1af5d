package options

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Load", func() {
	var flagSet = NewFlagSet()

	writeConfig := func(content string) string {
		path := filepath.Join(GinkgoT().TempDir(), "config.toml")
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	It("uses flag defaults when no config file is given", func() {
		into := NewOptions()
		Expect(Load("", flagSet, into)).To(Succeed())

		Expect(into.HTTPAddress).To(Equal("127.0.0.1:4180"))
		Expect(into.AWSRegion).To(Equal("us-east-1"))
		Expect(into.Cookie.Name).To(Equal("_ltd_proxy"))
		Expect(into.Cookie.Expire).To(Equal(168 * time.Hour))
	})

	It("loads values from a config file", func() {
		path := writeConfig(`
s3_bucket = "example-docs"
s3_bucket_prefix = "prefix"
github_client_id = "client-id"
cookie_secret = "0123456789abcdef"
cookie_expire = "24h"
`)

		into := NewOptions()
		Expect(Load(path, flagSet, into)).To(Succeed())

		Expect(into.S3Bucket).To(Equal("example-docs"))
		Expect(into.S3BucketPrefix).To(Equal("prefix"))
		Expect(into.GitHubClientID).To(Equal("client-id"))
		Expect(into.Cookie.Secret).To(Equal("0123456789abcdef"))
		Expect(into.Cookie.Expire).To(Equal(24 * time.Hour))
	})

	It("loads values from the environment", func() {
		os.Setenv("LTD_PROXY_S3_BUCKET", "env-docs")
		DeferCleanup(os.Unsetenv, "LTD_PROXY_S3_BUCKET")

		into := NewOptions()
		Expect(Load("", flagSet, into)).To(Succeed())

		Expect(into.S3Bucket).To(Equal("env-docs"))
	})

	It("rejects unknown config options", func() {
		path := writeConfig(`unknown_option = "value"`)

		into := NewOptions()
		Expect(Load(path, flagSet, into)).ToNot(Succeed())
	})

	It("errors when the config file does not exist", func() {
		into := NewOptions()
		err := Load(filepath.Join(GinkgoT().TempDir(), "missing.toml"), flagSet, into)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unable to load config file"))
	})
})

var _ = Describe("LoadYAML", func() {
	type testConfig struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	writeConfig := func(content string) string {
		path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	It("loads a YAML file", func() {
		path := writeConfig("name: example\ncount: 3\n")

		into := &testConfig{}
		Expect(LoadYAML(path, into)).To(Succeed())
		Expect(into).To(Equal(&testConfig{Name: "example", Count: 3}))
	})

	It("substitutes environment variables", func() {
		os.Setenv("LOAD_YAML_TEST_NAME", "from-env")
		DeferCleanup(os.Unsetenv, "LOAD_YAML_TEST_NAME")

		path := writeConfig("name: ${LOAD_YAML_TEST_NAME}\n")

		into := &testConfig{}
		Expect(LoadYAML(path, into)).To(Succeed())
		Expect(into.Name).To(Equal("from-env"))
	})

	It("rejects unknown fields", func() {
		path := writeConfig("name: example\nunknown: true\n")

		into := &testConfig{}
		Expect(LoadYAML(path, into)).ToNot(Succeed())
	})

	It("errors when no file is provided", func() {
		Expect(LoadYAML("", &testConfig{})).ToNot(Succeed())
	})
})
