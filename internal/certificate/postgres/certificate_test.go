package postgres

import (
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	certmodel "github.com/eventflow/event-management/internal/core/datamodel/certificate"
)

func TestCertificateRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Certificate Repository Suite")
}

// SQLite-compatible table twins: the production models declare now() column
// defaults, which SQLite cannot create.
type CertificateSQLite struct {
	ID           string     `gorm:"primaryKey"`
	SubmissionID string     `gorm:"column:submission_id;not null;uniqueIndex"`
	ContactID    *string    `gorm:"column:contact_id"`
	EventID      string     `gorm:"column:event_id;not null;index"`
	TemplateType string     `gorm:"column:template_type;not null"`
	Status       string     `gorm:"column:status;default:QUEUED"`
	FileAssetID  *string    `gorm:"column:file_asset_id"`
	IssuedAt     *time.Time `gorm:"column:issued_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (CertificateSQLite) TableName() string {
	return "certificates"
}

type ContactSQLite struct {
	ID        string    `gorm:"primaryKey"`
	Name      *string   `gorm:"column:name"`
	Email     *string   `gorm:"column:email"`
	Phone     *string   `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (ContactSQLite) TableName() string {
	return "contacts"
}

type EventSQLite struct {
	ID          string     `gorm:"primaryKey"`
	Title       string     `gorm:"column:title;not null"`
	Description *string    `gorm:"column:description"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex"`
	Date        *time.Time `gorm:"column:date"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (EventSQLite) TableName() string {
	return "events"
}

var _ = ginkgo.Describe("CertificateRepository", func() {
	var (
		db   *gorm.DB
		repo *CertificateRepository
	)

	newCertificate := func(submissionID string, contactID *string) *certmodel.Certificate {
		return &certmodel.Certificate{
			SubmissionID: submissionID,
			ContactID:    contactID,
			EventID:      "evt-1",
			TemplateType: certmodel.TemplateCompletion,
			Status:       certmodel.StatusQueued,
		}
	}

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		err = db.AutoMigrate(&CertificateSQLite{}, &ContactSQLite{}, &EventSQLite{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		name := "Alan Turing"
		gomega.Expect(db.Create(&ContactSQLite{ID: "contact-1", Name: &name}).Error).ToNot(gomega.HaveOccurred())
		gomega.Expect(db.Create(&EventSQLite{
			ID:    "evt-1",
			Title: "Computing Workshop",
			Slug:  "computing-workshop",
		}).Error).ToNot(gomega.HaveOccurred())

		repo = NewCertificateRepository(db)
	})

	ginkgo.Describe("Create", func() {
		ginkgo.It("inserts the certificate and generates an id", func() {
			c := newCertificate("sub-1", nil)

			gomega.Expect(repo.Create(c)).To(gomega.Succeed())
			gomega.Expect(c.ID).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("rejects a second certificate for the same submission", func() {
			gomega.Expect(repo.Create(newCertificate("sub-1", nil))).To(gomega.Succeed())
			gomega.Expect(repo.Create(newCertificate("sub-1", nil))).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("GetBySubmissionID", func() {
		ginkgo.It("returns nil without error when nothing matches", func() {
			c, err := repo.GetBySubmissionID("missing")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(c).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("GetByIDWithRelations", func() {
		ginkgo.It("joins the contact and event in one read", func() {
			contactID := "contact-1"
			c := newCertificate("sub-1", &contactID)
			gomega.Expect(repo.Create(c)).To(gomega.Succeed())

			rel, err := repo.GetByIDWithRelations(c.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(rel).ToNot(gomega.BeNil())
			gomega.Expect(rel.Event.Title).To(gomega.Equal("Computing Workshop"))
			gomega.Expect(rel.Contact).ToNot(gomega.BeNil())
			gomega.Expect(*rel.Contact.Name).To(gomega.Equal("Alan Turing"))
		})

		ginkgo.It("returns a nil contact for an anonymous submission", func() {
			c := newCertificate("sub-1", nil)
			gomega.Expect(repo.Create(c)).To(gomega.Succeed())

			rel, err := repo.GetByIDWithRelations(c.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(rel.Contact).To(gomega.BeNil())
		})

		ginkgo.It("returns nil without error for an unknown id", func() {
			rel, err := repo.GetByIDWithRelations("missing")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(rel).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("status transitions", func() {
		var cert *certmodel.Certificate

		ginkgo.BeforeEach(func() {
			cert = newCertificate("sub-1", nil)
			gomega.Expect(repo.Create(cert)).To(gomega.Succeed())
		})

		ginkgo.It("moves QUEUED to PROCESSING", func() {
			gomega.Expect(repo.MarkProcessing(cert.ID)).To(gomega.Succeed())

			updated, err := repo.GetByID(cert.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(certmodel.StatusProcessing))
		})

		ginkgo.It("stamps issued_at and file_asset_id on the GENERATED transition", func() {
			issuedAt := time.Now().UTC().Truncate(time.Second)

			gomega.Expect(repo.MarkGenerated(cert.ID, "file-1", issuedAt)).To(gomega.Succeed())

			updated, err := repo.GetByID(cert.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(certmodel.StatusGenerated))
			gomega.Expect(*updated.FileAssetID).To(gomega.Equal("file-1"))
			gomega.Expect(updated.IssuedAt).ToNot(gomega.BeNil())
		})

		ginkgo.It("never overwrites a GENERATED certificate", func() {
			first := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
			gomega.Expect(repo.MarkGenerated(cert.ID, "file-1", first)).To(gomega.Succeed())

			gomega.Expect(repo.MarkGenerated(cert.ID, "file-2", time.Now().UTC())).To(gomega.Succeed())
			gomega.Expect(repo.MarkFailed(cert.ID)).To(gomega.Succeed())
			gomega.Expect(repo.MarkProcessing(cert.ID)).To(gomega.Succeed())

			updated, err := repo.GetByID(cert.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(certmodel.StatusGenerated))
			gomega.Expect(*updated.FileAssetID).To(gomega.Equal("file-1"))
			gomega.Expect(updated.IssuedAt.Unix()).To(gomega.Equal(first.Unix()))
		})

		ginkgo.It("marks a rendering failure", func() {
			gomega.Expect(repo.MarkProcessing(cert.ID)).To(gomega.Succeed())
			gomega.Expect(repo.MarkFailed(cert.ID)).To(gomega.Succeed())

			updated, err := repo.GetByID(cert.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(certmodel.StatusFailed))
		})
	})

	ginkgo.Describe("ListByEvent", func() {
		ginkgo.It("returns certificates oldest first", func() {
			base := time.Now().UTC().Add(-time.Hour)
			for i := 0; i < 3; i++ {
				c := newCertificate("sub-"+string(rune('a'+i)), nil)
				c.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				gomega.Expect(repo.Create(c)).To(gomega.Succeed())
			}

			certs, err := repo.ListByEvent("evt-1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(certs).To(gomega.HaveLen(3))
			gomega.Expect(certs[0].SubmissionID).To(gomega.Equal("sub-a"))
			gomega.Expect(certs[2].SubmissionID).To(gomega.Equal("sub-c"))
		})

		ginkgo.It("returns an empty slice for an event with no certificates", func() {
			certs, err := repo.ListByEvent("evt-other")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(certs).To(gomega.BeEmpty())
		})
	})
})
