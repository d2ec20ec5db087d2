package objectstore

import "testing"

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Endpoint:       "localhost:9000",
		AccessKey:      "a",
		SecretKey:      "b",
		Region:         "us-east-1",
		BucketReleases: "releases",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	invalid := valid
	invalid.Endpoint = "http://localhost:9000"
	if err := invalid.Validate(); err == nil {
		t.Fatalf("expected error for scheme in endpoint")
	}

	invalid = valid
	invalid.SecretKey = ""
	if err := invalid.Validate(); err == nil {
		t.Fatalf("expected error for access key without secret key")
	}

	noCreds := valid
	noCreds.AccessKey = ""
	noCreds.SecretKey = ""
	if err := noCreds.Validate(); err != nil {
		t.Fatalf("Validate() without creds err=%v", err)
	}
	if noCreds.HasStaticCredentials() {
		t.Fatalf("HasStaticCredentials()=true, want false")
	}
}
