package domain

// BuildPayload assembles the submission payload from the resolved identifiers
// and the extracted entries. Org unit and dataset are mandatory and checked
// before period or entries are consulted; entries are carried through
// unmodified. The builder performs no network I/O.
func BuildPayload(orgUnitID, dataSetID, periodID string, entries []DataValue) (*SubmissionPayload, error) {
	if orgUnitID == "" {
		return nil, ErrOrgUnitNotSelected
	}
	if dataSetID == "" {
		return nil, ErrDataSetNotSelected
	}
	if periodID == "" {
		return nil, ErrPeriodNotSet
	}
	return &SubmissionPayload{
		DataSet:    dataSetID,
		Period:     periodID,
		OrgUnit:    orgUnitID,
		DataValues: entries,
	}, nil
}
