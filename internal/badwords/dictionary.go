package badwords

// Entry is one severity tier. Every pattern is a ROT13-encoded regex
// fragment so the source does not spell the words out.
type Entry struct {
	// Strings match anywhere in the text.
	Strings []string `json:"strings,omitempty"`
	// Words must start and end on a word boundary.
	Words []string `json:"words,omitempty"`
	// Prefixes must start on a word boundary.
	Prefixes []string `json:"prefixes,omitempty"`
}

// Dictionary is ordered by ascending severity; the index of an entry is its tier.
type Dictionary []Entry

// DatasetName is the storage dataset that can override the built-in dictionary.
const DatasetName = "badwords"

// DevelopmentWord is added to tier 1 outside production so moderation can be
// exercised without typing real slurs.
const DevelopmentWord = "nhgbzbqzhgr"

// Default returns the built-in dictionary.
func Default(development bool) Dictionary {
	dict := Dictionary{
		{
			Strings: []string{
				`cbea`,
				`grfgvpyr`,
				`fpuzhpx`,
				`erpghz`,
				`ihyin`,
				`🖕`,
				`卐`,
				`fjnfgvxn`,
				`卍`,
				`lvss`,
				`ahg ?fnpx`,
			},
			Words: []string{
				`intva(?:n|r|y|f|l)+`,
				`(?:urzv ?)?cravf(?:rf)?`,
				`nahf(?:rf)?`,
				`frzra`,
				`(?:c(?:er|bfg) ?)?phz`,
				`pyvg`,
				`gvg(?:(?:gvr)?f)?`,
				`chff(?:l|vrf)`,
				`fpebghz`,
				`ynovn`,
				`xlf`,
				`preivk`,
				`ubeal`,
				`obaref?`,
				`fcrez`,
			},
		},
		{
			Strings: []string{
				`ohyy ?fuv+r*g`,
				`ubefr ?fuv+r*g`,
				`fuv+r*g(?:cbfg|urnq|ubyr|fubj|gnyx|fgbez)`,
				`rwnphyngr`,
				`fcyb+tr`,
				`oybj ?wbo`,
				`shpx`,
				`wvmm`,
				`wvfz`,
				`znfg(?:h|r)eong`,
				`ohgg ?cvengr`,
				`qvyqb`,
				`xhxfhtre`,
				`dhrrs`,
				`wnpx ?bss`,
				`wrex ?bss`,
				`ovg?pu`,
			},
			Words: []string{
				`fuv+r*g(?:f|gl|gvat|grq|gre|l)?`,
				`(?:ovt ?)?qvp?xr?(?: ?(?:q|l|evat|ef?|urnqf?|vre?|vrfg?|vat|f|jnqf?|loveqf?))?`,
				`(?:8|o)=+Q`,
				`fzhg+(?:vr|e|fg?|l)?`,
				`pbpx(?: ?svtug|fhpx|(?:svtug|fhpx)(?:re|vat)|znafuvc|hc)?f?`,
				`onfgneq(?:vfz|(?:y|e)?l|evrf|f)?`,
				`phagf?`,
				`shx`,
				`ovg?fu`,
				`jnax(?:v?ref?|v(?:rfg|at)|yr|f|l)?`,
			},
		},
		{
			Strings: []string{
				`puvat ?(?:punat ?)?puba`,
				`xvxr`,
				`pnecrg ?zhapure`,
				`fyhg`,
				`fur ?znyr`,
				`shqtr ?cnpxr`,
				`ergneq`,
			},
			Words: []string{
				`tbbx(?:f|l)?`,
				`yrfobf?`,
				`fcvpf?`,
				`j?uber`,
				`av+t{2,}(?:(?:r|h)?e|n)(?: ?rq|qbz|urnq|vat|vf(?:u|z)|yvat|l)?f?`,
				`snv?t+(?:rq|vr(?:e|fg)|va|vg|bgf?|bge?l|l)?f?`,
				`wnc(?:rq?|revrf|re?f|rel?|r?f|vatf?|crq|cvat|cn)?`,
			},
		},
	}
	if development {
		dict[1].Strings = append(dict[1].Strings, DevelopmentWord)
	}
	return dict
}
