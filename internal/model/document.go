package model

// InvoiceDocument is the structured payload handed to the document renderer.
// Building it mutates nothing; rendering is a pure function of this data.
type InvoiceDocument struct {
	Payment     ProgressPayment
	Certificate CompletionCertificate
	Project     Project
	Status      string
}

// HandoverDocument backs the rendered work-completion certificate.
type HandoverDocument struct {
	Certificate CompletionCertificate
	Project     Project
}
