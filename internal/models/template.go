package models

import "time"

// DocumentTemplate is an externally managed default document requirement used
// to seed new checklists. Templates live in the document_templates collection
// and are filtered by is_active.
type DocumentTemplate struct {
	ID                    string           `db:"id" json:"id"`
	DocumentType          string           `db:"document_type" json:"document_type"`
	DocumentName          string           `db:"document_name" json:"document_name"`
	Category              DocumentCategory `db:"category" json:"category"`
	IsRequired            bool             `db:"is_required" json:"is_required"`
	RequiredForEnrollment bool             `db:"required_for_enrollment" json:"required_for_enrollment"`
	IsActive              bool             `db:"is_active" json:"is_active"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`
}

// DefaultDocumentTemplates returns the built-in requirement list used when no
// active templates exist in the store. The set mirrors the CEEJA enrollment
// intake paperwork.
func DefaultDocumentTemplates() []DocumentTemplate {
	return []DocumentTemplate{
		{DocumentType: "rg", DocumentName: "RG (Carteira de Identidade)", Category: CategoryPersonal, IsRequired: true, RequiredForEnrollment: true},
		{DocumentType: "cpf", DocumentName: "CPF", Category: CategoryPersonal, IsRequired: true, RequiredForEnrollment: true},
		{DocumentType: "certidao_nascimento_casamento", DocumentName: "Certidão de Nascimento ou Casamento", Category: CategoryPersonal, IsRequired: true, RequiredForEnrollment: true},
		{DocumentType: "foto_3x4", DocumentName: "Foto 3x4", Category: CategoryPersonal, IsRequired: true, RequiredForEnrollment: true},
		{DocumentType: "historico_escolar_fundamental", DocumentName: "Histórico Escolar - Ensino Fundamental", Category: CategorySchooling, IsRequired: true, RequiredForEnrollment: true},
		{DocumentType: "historico_escolar_medio", DocumentName: "Histórico Escolar - Ensino Médio (se aplicável)", Category: CategorySchooling},
		{DocumentType: "comprovante_residencia", DocumentName: "Comprovante de Residência", Category: CategoryAddress, IsRequired: true, RequiredForEnrollment: true},
		{DocumentType: "tit_eleitor", DocumentName: "Título de Eleitor", Category: CategoryOther},
		{DocumentType: "carteira_vacinacao_covid", DocumentName: "Carteira de Vacinação COVID", Category: CategoryOther},
		{DocumentType: "atestado_eliminacao_disciplina", DocumentName: "Atestado de Eliminação de Disciplina (se aplicável)", Category: CategorySchooling},
		{DocumentType: "declaracao_transferencia", DocumentName: "Declaração de Transferência (se aplicável)", Category: CategorySchooling},
		{DocumentType: "outros", DocumentName: "Outros Documentos", Category: CategoryOther},
		{DocumentType: "requerimento_dispensa_educacao_fisica", DocumentName: "Requerimento de Dispensa de Educação Física", Category: CategoryOther},
		{DocumentType: "reservista", DocumentName: "Reservista", Category: CategoryOther},
	}
}
