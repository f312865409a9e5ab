package handlers

// User-facing texts, kept in one place like a message catalog.
const (
	MsgMustLogIn          = "You need an invitation link to use this bot. Ask your owner for one."
	MsgTokenInvalid       = "This invitation link is not valid."
	MsgTokenExpired       = "This invitation link has expired; ask for a fresh one."
	MsgUnknownOwner       = "The owner who issued this link no longer exists."
	MsgYourRoleNow        = "You have a new role: %s."
	MsgAskForName         = "Enter your first and last name."
	MsgWelcome            = "Choose an action."
	MsgSendYourGeo        = "Send your current location."
	MsgOutOfRange         = "There is no office near you."
	MsgOfficeOpened       = "%s: office is open."
	MsgOfficeClosed       = "%s: office is closed."
	MsgAlreadyOpened      = "%s: office is already open."
	MsgAlreadyClosed      = "%s: office is already closed."
	MsgOpenedNotice       = "%s: office was opened."
	MsgClosedNotice       = "%s: office was closed."
	MsgOpenedLateNotice   = "%s: office was opened outside the scheduled time."
	MsgClosedLateNotice   = "%s: office was closed outside the scheduled time."
	MsgSendOfficeGeo      = "Send the office location."
	MsgEnterWorkingHours  = "Enter working hours, one weekday per line, like:\nMon 09:00-18:00\nTue 09:00-18:00"
	MsgBadWorkingHours    = "Could not read the working hours. Use lines like 'Mon 09:00-18:00' with closing after opening."
	MsgEnterOfficeName    = "Enter the office name."
	MsgOfficeCreated      = "Office created."
	MsgSendThisLink       = "Send this link to your new employee: %s"
	MsgNoOperators        = "You have no employees yet."
	MsgNoOffices          = "You have no offices yet."
	MsgChooseOperator     = "Choose an employee to delete."
	MsgChooseOffice       = "Choose an office."
	MsgReallyDeleteWhom   = "Delete %s? This cannot be undone."
	MsgReallyDeleteOffice = "Delete office %s? Its schedule goes with it."
	MsgOperatorDeleted    = "Employee deleted."
	MsgOfficeDeleted      = "Office deleted."
	MsgDeletionCancelled  = "Cancelled."
	MsgSomethingWrong     = "Something went wrong, please try again."
)
