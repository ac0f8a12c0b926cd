package permission

import "smena.org/internal/role"

// defaultTables lists each role's DIRECT permissions. Inheritance down the
// hierarchy supplies the rest at evaluation time, so entries are not
// repeated on higher roles.
func defaultTables() map[role.Type][]Permission {
	bctx := []Condition{ConditionBusinessContext}
	return map[role.Type][]Permission{
		role.Seeker: {
			{Resource: ResourceIdentity, Action: ActionRead, Conditions: []Condition{ConditionSelf}},
			{Resource: ResourcePaper, Action: ActionRead, Conditions: []Condition{ConditionPaperOwnership}},
			{Resource: ResourcePaper, Action: ActionCreate, Conditions: []Condition{ConditionSelf}},
		},
		role.Worker: {
			{Resource: ResourceAttendance, Action: ActionCreate, Conditions: []Condition{ConditionBusinessContext, ConditionSelf}, RequiresBusinessContext: true},
			{Resource: ResourceAttendance, Action: ActionRead, Conditions: []Condition{ConditionBusinessContext, ConditionSelf}, RequiresBusinessContext: true},
			{Resource: ResourceSchedule, Action: ActionRead, Conditions: bctx, RequiresBusinessContext: true},
		},
		role.Manager: {
			{Resource: ResourceAttendance, Action: ActionRead, Conditions: bctx, RequiresBusinessContext: true},
			{Resource: ResourceAttendance, Action: ActionUpdate, Conditions: bctx, RequiresBusinessContext: true},
			{Resource: ResourceSchedule, Action: ActionCreate, Conditions: bctx, RequiresBusinessContext: true},
			{Resource: ResourceSchedule, Action: ActionUpdate, Conditions: bctx, RequiresBusinessContext: true},
			{Resource: ResourceIdentity, Action: ActionRead, Conditions: bctx, RequiresBusinessContext: true},
			{Resource: ResourceReport, Action: ActionRead, Conditions: bctx, RequiresBusinessContext: true},
		},
		role.Supervisor: {
			{Resource: ResourceAttendance, Action: ActionApprove, Conditions: bctx, RequiresBusinessContext: true},
			{Resource: ResourcePaper, Action: ActionUpdate, Conditions: bctx, RequiresBusinessContext: true},
			{Resource: ResourceReport, Action: ActionCreate, Conditions: bctx, RequiresBusinessContext: true},
		},
		role.Owner: {
			{Resource: ResourcePaper, Action: ActionCreate, Conditions: bctx, RequiresBusinessContext: true},
			{Resource: ResourcePaper, Action: ActionUpdate, Conditions: bctx, RequiresBusinessContext: true},
			{Resource: ResourcePaper, Action: ActionDelete, Conditions: bctx, RequiresBusinessContext: true},
			{Resource: ResourceBusiness, Action: ActionUpdate, Conditions: bctx, RequiresBusinessContext: true},
		},
		role.Franchisee: {
			{Resource: ResourceBusiness, Action: ActionRead, Conditions: bctx, RequiresBusinessContext: true},
		},
		role.Franchisor: {
			{Resource: ResourceBusiness, Action: ActionRead},
			{Resource: ResourceReport, Action: ActionRead},
			{Resource: ResourcePaper, Action: ActionValidate, Conditions: []Condition{ConditionVerification}},
			{Resource: ResourceIdentity, Action: ActionUpdate, Conditions: []Condition{ConditionVerification}},
			{Resource: ResourceIdentity, Action: ActionDelete, Conditions: []Condition{ConditionVerification}},
		},
	}
}
