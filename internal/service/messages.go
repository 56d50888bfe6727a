package service

// User-facing messages. These are display data for the front end; callers
// doing programmatic handling must branch on the error code, not the text.
const (
	msgSessionNotFound      = "Sessão não encontrada."
	msgSessionClosed        = "Sessão fechada."
	msgStudentNotFound      = "Aluno não encontrado."
	msgStudentNotInClass    = "Aluno não pertence a esta turma."
	msgAlreadyRegistered    = "Aluno já registrado."
	msgInvalidStatus        = "Status inválido."
	msgSessionClassNotFound = "Turma da sessão não encontrada."
	msgClassNotFound        = "Turma não encontrada."
	msgClassCodeTaken       = "Código de turma já cadastrado."
	msgUserNotFound         = "Usuário não encontrado."
	msgEmailTaken           = "E-mail já cadastrado."
	msgAttendancesReset     = "Presenças resetadas com sucesso."
)
