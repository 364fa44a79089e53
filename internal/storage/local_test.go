package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestStorage(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Storage Suite")
}

var _ = ginkgo.Describe("LocalProvider", func() {
	var (
		provider *LocalProvider
		baseDir  string
		ctx      context.Context
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		baseDir = ginkgo.GinkgoT().TempDir()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		var err error
		provider, err = NewLocalProvider(baseDir, "http://localhost:8080/files/", logger)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
	})

	ginkgo.Describe("Upload", func() {
		ginkgo.It("writes the object under the base directory", func() {
			result, err := provider.Upload(ctx, UploadParams{
				Key:         "events/evt-1/certificates/cert.pdf",
				Body:        []byte("%PDF-1.4"),
				ContentType: "application/pdf",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(result.URL).To(gomega.Equal("http://localhost:8080/files/events/evt-1/certificates/cert.pdf"))

			written, err := os.ReadFile(filepath.Join(baseDir, "events", "evt-1", "certificates", "cert.pdf"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(written).To(gomega.Equal([]byte("%PDF-1.4")))
		})

		ginkgo.It("confines traversal keys to the base directory", func() {
			_, err := provider.Upload(ctx, UploadParams{
				Key:  "../../etc/passwd",
				Body: []byte("nope"),
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(filepath.Join(baseDir, "etc", "passwd")).To(gomega.BeARegularFile())
		})

		ginkgo.It("rejects an empty key", func() {
			_, err := provider.Upload(ctx, UploadParams{Key: "", Body: []byte("x")})
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Delete", func() {
		ginkgo.It("removes a stored object", func() {
			_, err := provider.Upload(ctx, UploadParams{Key: "a/b.txt", Body: []byte("x")})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(provider.Delete(ctx, "a/b.txt")).To(gomega.Succeed())
			gomega.Expect(filepath.Join(baseDir, "a", "b.txt")).ToNot(gomega.BeAnExistingFile())
		})

		ginkgo.It("treats a missing object as already deleted", func() {
			gomega.Expect(provider.Delete(ctx, "never/stored.txt")).To(gomega.Succeed())
		})
	})
})
