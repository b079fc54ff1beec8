package authz

// User-facing rejection and advisory messages, kept verbatim from the
// deployed product. These strings are part of the kiosk/receptionist UI
// contract; do not reword them.
const (
	MsgRegistrationNotFound  = "El registro no fue encontrado o ya no se encuentra disponible."
	MsgRegistrationInactive  = "El registro ya no esta disponible."
	MsgNoAccessPoints        = "Se deben definir los accesos a los cuales el visitante tendrá acceso."
	MsgWrongAccessPoint      = "No estás autorizado para dar acceso a este visitante, debe dirigirse al acceso correspondiente."
	MsgScheduleConcluded     = "Ya no puedes ingresar debido a que tu horario ha concluido."
	MsgVisitNotAuthorized    = "La visita aún no ha sido autorizada."
	MsgVisitRejected         = "La visita fue rechazada."
	MsgVisitAwaitingIdentity = "El residente no ha validado su información para permitir el acceso."
	MsgVisitCancelled        = "La visita fue cancelada."
	MsgVisitFinished         = "La visita fue finalizada."

	MsgEmployeeNotFound = "El empleado no fue encontrado."
	MsgEmployeeInactive = "El empleado ya no esta disponible."
)

// Entry-window messages interpolate the visitor's name.
const (
	msgTooEarlyFmt = "El visitante %s aún no puede acceder, verifica su hora de entrada."
	msgExpiredFmt  = "El visitante %s ya no puede acceder, su hora de entrada ha expirado."
)
